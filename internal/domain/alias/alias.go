// Package alias derives the index alias names a tenant's documents are routed through.
//
// Writes go through the write alias, reads through the read alias. Both
// normally point at the same physical index; during a migration they may
// diverge, which is why they are kept separate.
package alias

import "fmt"

// Write returns the alias used for mutations of (tenant, documentType).
func Write(tenant, documentType string) string {
	return fmt.Sprintf("%s-%s-write", tenant, documentType)
}

// Read returns the alias used for queries of (tenant, documentType).
func Read(tenant, documentType string) string {
	return fmt.Sprintf("%s-%s-read", tenant, documentType)
}

// Physical returns the name of the n-th physical index behind the alias pair.
func Physical(tenant, documentType string, generation int) string {
	return fmt.Sprintf("%s-%s-%06d", tenant, documentType, generation)
}
