package main

import "github.com/Shonkurieta/ebookreader/cmd/readerapi/cmd"

func main() {
	cmd.Execute()
}
