// Package iam owns the reader API's identity operations.
//
// It provides:
//
//   - RoleResolver: the optional role-refresh tier consulted by the
//     authentication gate, bounded by a timeout and fronted by an
//     expiring LRU cache
//   - Service: the token issuance triggers (register, login, refresh,
//     rename) plus account and administration operations
//
// Request Flow:
//
//	Request → Gate → Codec.Parse → Validator.Check → RoleResolver (optional)
//	       ↓
//	   Policy.Authorize(SecurityContext) → handler → Service
//
// Tokens carry the role set at issuance time. A role change made through
// Service is visible to the gate once the cached record expires or is
// invalidated; outstanding tokens are never revoked.
package iam
