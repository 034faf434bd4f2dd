package cache

// AccountKey caches the presentation view of an account
func AccountKey(accountID string) string {
	return "account:" + accountID
}

// AccountGenerationKey holds a token that changes whenever the account's
// balance does
func AccountGenerationKey(accountID string) string {
	return "account-gen:" + accountID
}

// DirectoryKey caches the account ID an identifier resolves to
func DirectoryKey(identifier string) string {
	return "directory:" + identifier
}

// IdempotencyKey stores the outcome of a transfer request per caller
func IdempotencyKey(accountID, key string) string {
	return "idempotency:" + accountID + ":" + key
}
