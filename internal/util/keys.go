package util

// LockSuffix is appended to a storage key to name its lease record.
const LockSuffix = ":lock"

// StorageKey isolates a fingerprint by namespace: <ns>:<fingerprint>.
func StorageKey(ns, fingerprint string) string {
	return ns + ":" + fingerprint
}

// LockKey names the lease record guarding storageKey.
func LockKey(storageKey string) string {
	return storageKey + LockSuffix
}
