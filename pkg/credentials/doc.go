// Package credentials stores secrets for upstream services, chiefly the
// YouTube Data API key.
//
// Manager chains several stores: the system keyring when one is reachable,
// an encrypted file in the user's config directory, and finally the
// process environment. Writes go to the first store that accepts them and
// reads fall through the chain.
package credentials
