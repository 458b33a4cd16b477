// Package accounts implements a user-account service core: registration
// with email verification, credential-based login, access/refresh token
// issuance and rotation, role-based authorization, and a periodic sweep
// that soft-deletes stale unverified accounts.
//
// Persistence, email transport, and job scheduling are collaborators
// behind small interfaces; everything else lives here.
package accounts
