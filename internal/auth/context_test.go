package auth

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSecurityContext_SetOnce(t *testing.T) {
	ctx := context.Background()
	_, ok := SecurityContextFrom(ctx)
	assert.False(t, ok, "fresh request context is anonymous")

	ctx, set := WithSecurityContext(ctx, SecurityContext{PrincipalID: 7, Identity: "alice", Roles: []string{RoleUser}})
	require.True(t, set)

	again, set := WithSecurityContext(ctx, SecurityContext{PrincipalID: 8, Identity: "mallory", Roles: []string{RoleAdmin}})
	assert.False(t, set)

	sc, ok := SecurityContextFrom(again)
	require.True(t, ok)
	assert.Equal(t, int64(7), sc.PrincipalID)
	assert.Equal(t, "alice", sc.Identity)
}

func TestSecurityContext_RolesAreNotShared(t *testing.T) {
	roles := []string{RoleUser}
	ctx, _ := WithSecurityContext(context.Background(), SecurityContext{PrincipalID: 7, Roles: roles})

	roles[0] = RoleAdmin
	sc, _ := SecurityContextFrom(ctx)
	assert.Equal(t, []string{RoleUser}, sc.Roles)

	sc.Roles[0] = RoleAdmin
	again, _ := SecurityContextFrom(ctx)
	assert.Equal(t, []string{RoleUser}, again.Roles)
}

func TestSecurityContext_HasRole(t *testing.T) {
	sc := SecurityContext{Roles: []string{RoleUser}}
	assert.True(t, sc.HasRole("USER"))
	assert.True(t, sc.HasRole("ROLE_USER"))
	assert.False(t, sc.HasRole(RoleAdmin))
	assert.True(t, sc.HasAnyRole(RoleAdmin, RoleUser))
	assert.False(t, sc.HasAnyRole())
}

func TestSecurityContext_RequestIsolation(t *testing.T) {
	base := context.Background()
	var wg sync.WaitGroup
	for i := int64(1); i <= 50; i++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			ctx, _ := WithSecurityContext(base, SecurityContext{PrincipalID: id})
			sc, ok := SecurityContextFrom(ctx)
			assert.True(t, ok)
			assert.Equal(t, id, sc.PrincipalID)
		}(i)
	}
	wg.Wait()

	_, ok := SecurityContextFrom(base)
	assert.False(t, ok)
}
