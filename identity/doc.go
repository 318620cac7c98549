// Package identity provides generation of the identifiers used to name
// regions, hosts, reservations and audit records.
//
// Identifiers are cryptographically-strong, random 128 bit numbers encoded in
// Base36. This method is preferred over UUID4 since it requires less storage
// and leverages the full 128 bits of entropy.
package identity
