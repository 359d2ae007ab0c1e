// Package common contains shared constants and sentinel errors used across
// AuthVault components.
package common

// AuthorizationHeaderName is the HTTP header carrying the bearer access token
// on authenticated requests.
const AuthorizationHeaderName = "Authorization"

// BearerPrefix is the scheme prefix expected in the Authorization header.
const BearerPrefix = "Bearer "
