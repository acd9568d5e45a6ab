// Package vaultsts exchanges an AppRole role/secret pair for temporary
// object-storage credentials through HashiCorp Vault's AWS secrets engine.
//
// The exchange is two HTTP calls:
//
//  1. POST auth/approle/login with {role_id, secret_id}, yielding a
//     short-lived client token.
//  2. GET aws/sts/<role> with that token, yielding an access key, secret
//     key and session token.
//
// There is no retry logic: either call failing, or either response missing
// its expected field, fails the exchange. The caller decides whether to
// print the triple (cmd/s3creds) or hand it to a storage backend directly.
package vaultsts
