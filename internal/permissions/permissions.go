// Package permissions defines the permission contract the local file
// provider depends on.
package permissions

import (
	"fmt"
	"os"
	"path/filepath"
)

// Scope names a permission the caller may hold.
type Scope string

const (
	// ScopeStorage is the permission to read and write the backup base
	// directory.
	ScopeStorage Scope = "storage"
)

// Checker verifies and requests permissions. The backup engine only ever
// verifies; requesting is driven by the caller on a denied verify.
type Checker interface {
	VerifyPermissions(scope Scope) bool
	RequestPermissions(scope Scope, rationale string) error
}

// DirChecker verifies storage permission by probing whether the base
// directory can be created and written.
type DirChecker struct {
	BaseDir string
}

func NewDirChecker(baseDir string) *DirChecker {
	return &DirChecker{BaseDir: baseDir}
}

func (c *DirChecker) VerifyPermissions(scope Scope) bool {
	if scope != ScopeStorage {
		return false
	}
	if err := os.MkdirAll(c.BaseDir, 0o755); err != nil {
		return false
	}
	probe := filepath.Join(c.BaseDir, ".dante-write-probe")
	if err := os.WriteFile(probe, nil, 0o644); err != nil {
		return false
	}
	os.Remove(probe)
	return true
}

// RequestPermissions cannot grant filesystem access on behalf of the user;
// it reports what is missing.
func (c *DirChecker) RequestPermissions(scope Scope, rationale string) error {
	if c.VerifyPermissions(scope) {
		return nil
	}
	return fmt.Errorf("permission %q denied for %s: %s", scope, c.BaseDir, rationale)
}
