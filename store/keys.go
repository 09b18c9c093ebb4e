package store

import "strings"

// Key builders for the conventional key scheme. Entity values are JSON.
// Domains and emails are lowercased here so index writes and lookups agree
// on a single canonical key.

// TenantSetKey is the global set of tenant ids.
const TenantSetKey = "tenants"

// TenantKey is the key holding a tenant record.
func TenantKey(tenantID string) string {
	return "tenant:" + tenantID
}

// TenantDomainKey is the domain → tenant id index.
func TenantDomainKey(domain string) string {
	return "tenant:domain:" + strings.ToLower(domain)
}

// UserKey is the tenant-scoped key holding a user record.
func UserKey(tenantID, userID string) string {
	return "tenant:" + tenantID + ":user:" + userID
}

// UserEmailKey is the tenant-scoped email → user id index.
func UserEmailKey(tenantID, email string) string {
	return "tenant:" + tenantID + ":user:email:" + strings.ToLower(email)
}

// UserSetKey is the set of user ids owned by a tenant.
func UserSetKey(tenantID string) string {
	return "tenant:" + tenantID + ":users"
}

// SessionKey is the key holding a session record.
func SessionKey(sessionID string) string {
	return "session:" + sessionID
}

// BlacklistKey marks a raw token string as invalidated.
func BlacklistKey(token string) string {
	return "blacklist:" + token
}

// RateLimitKey is a throttle counter for a scope within a window bucket.
func RateLimitKey(scope, bucket string) string {
	return "ratelimit:" + scope + ":" + bucket
}

// AuditEventKey is the key holding an auth-event record.
func AuditEventKey(tenantID, eventID string) string {
	return "audit:" + tenantID + ":event:" + eventID
}

// AuditSetKey is the set of auth-event ids recorded for a tenant.
func AuditSetKey(tenantID string) string {
	return "audit:" + tenantID + ":events"
}
