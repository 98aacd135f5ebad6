// Package auth handles board logins. Passwords are stored as bcrypt hashes;
// sessions are random opaque tokens carried in a cookie and held in memory.
//
// The initial admin account is seeded with a deliberately well-known
// password and flagged must-change. Nothing blocks an operator from leaving
// it in place — that is their responsibility — but every successful login
// with the flag set reports it, and once the password is rotated the
// default credential can never authenticate again.
package auth
