// Copyright 2026 The Floxenv Authors
// SPDX-License-Identifier: Apache-2.0

package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/tidwall/jsonc"
)

// DefaultPriority is assigned to packages whose locked descriptor does
// not carry an explicit priority.
const DefaultPriority = 5

// Manifest is a locked manifest: a fully resolved, version-pinned
// description of which package outputs belong in an environment, their
// priorities, and activation hooks. It is immutable once parsed.
type Manifest struct {
	// Packages maps system → install ID → locked package. A null
	// package descriptor means the package is disabled on that system.
	Packages map[string]map[string]*LockedPackage `json:"packages"`

	// Vars are static environment variables exported by the
	// environment's envrc script.
	Vars map[string]string `json:"vars"`

	// Hook holds the activation hook script.
	Hook *Hook `json:"hook"`

	// Profile holds per-shell-dialect profile script fragments.
	Profile *Profile `json:"profile"`
}

// LockedPackage pins one package within a source.
type LockedPackage struct {
	// Input is the locked package-source reference, passed opaquely
	// to the resolver.
	Input json.RawMessage `json:"input"`

	// AttrPath identifies the package within the source.
	AttrPath []string `json:"attrPath"`

	// Priority resolves file-path collisions between packages; lower
	// wins. Defaults to DefaultPriority. Priority 0 is reserved for
	// the synthesized activation scripts and rejected here, so user
	// packages can never shadow them.
	Priority int `json:"priority"`

	// OutputsToInstall optionally narrows which outputs of the
	// package are installed. Empty means all declared outputs.
	OutputsToInstall []string `json:"outputsToInstall"`
}

// Hook is the environment's activation hook. OnActivate is the inline
// script; File references a script on disk. Script is the deprecated
// spelling of OnActivate and is honored with a warning at synthesis.
type Hook struct {
	OnActivate string `json:"onActivate"`
	File       string `json:"file"`
	Script     string `json:"script"`
}

// Profile holds per-dialect profile fragments. Common is sourced first
// in every dialect so dialect-specific code can override it.
type Profile struct {
	Common string `json:"common"`
	Bash   string `json:"bash"`
	Zsh    string `json:"zsh"`
	Fish   string `json:"fish"`
	Tcsh   string `json:"tcsh"`
}

// InstalledPackage pairs an install ID with its locked descriptor.
type InstalledPackage struct {
	InstallID string
	Package   *LockedPackage
}

// Parse reads a locked manifest from JSON or JSONC bytes. Comments and
// trailing commas are stripped before unmarshalling, so hand-annotated
// lockfiles parse the same as machine-written ones.
func Parse(data []byte) (*Manifest, error) {
	stripped := jsonc.ToJSON(data)

	var m manifestWire
	if err := json.Unmarshal(stripped, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest: %w", err)
	}

	result, err := m.toManifest()
	if err != nil {
		return nil, fmt.Errorf("parsing manifest: %w", err)
	}
	return result, nil
}

// ReadFile reads and parses the manifest file at path.
func ReadFile(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest %s: %w", path, err)
	}
	return Parse(data)
}

// manifestWire mirrors Manifest but defers priority defaulting, which
// needs to distinguish "absent" from "zero".
type manifestWire struct {
	Packages map[string]map[string]*lockedPackageWire `json:"packages"`
	Vars     map[string]string                        `json:"vars"`
	Hook     *Hook                                    `json:"hook"`
	Profile  *Profile                                 `json:"profile"`
}

type lockedPackageWire struct {
	Input            json.RawMessage `json:"input"`
	AttrPath         []string        `json:"attrPath"`
	Priority         *int            `json:"priority"`
	OutputsToInstall []string        `json:"outputsToInstall"`
}

func (w *manifestWire) toManifest() (*Manifest, error) {
	m := &Manifest{
		Packages: make(map[string]map[string]*LockedPackage, len(w.Packages)),
		Vars:     w.Vars,
		Hook:     w.Hook,
		Profile:  w.Profile,
	}
	for system, packages := range w.Packages {
		converted := make(map[string]*LockedPackage, len(packages))
		for installID, pkg := range packages {
			if pkg == nil {
				// Disabled on this system.
				converted[installID] = nil
				continue
			}
			priority := DefaultPriority
			if pkg.Priority != nil {
				priority = *pkg.Priority
			}
			if priority < 0 {
				return nil, fmt.Errorf("package %q: negative priority %d", installID, priority)
			}
			if priority == 0 {
				return nil, fmt.Errorf("package %q: priority 0 is reserved for activation scripts", installID)
			}
			if len(pkg.AttrPath) == 0 {
				return nil, fmt.Errorf("package %q: missing attrPath", installID)
			}
			converted[installID] = &LockedPackage{
				Input:            pkg.Input,
				AttrPath:         pkg.AttrPath,
				Priority:         priority,
				OutputsToInstall: pkg.OutputsToInstall,
			}
		}
		m.Packages[system] = converted
	}
	return m, nil
}

// Systems returns the systems this manifest supports, sorted.
func (m *Manifest) Systems() []string {
	systems := make([]string, 0, len(m.Packages))
	for system := range m.Packages {
		systems = append(systems, system)
	}
	sort.Strings(systems)
	return systems
}

// SupportsSystem reports whether the manifest has a package set for
// system. Systems not present are simply unsupported.
func (m *Manifest) SupportsSystem(system string) bool {
	_, ok := m.Packages[system]
	return ok
}

// PackagesFor returns the enabled packages for system in deterministic
// install-ID order. Disabled (null) entries are skipped.
func (m *Manifest) PackagesFor(system string) []InstalledPackage {
	packages := m.Packages[system]
	ids := make([]string, 0, len(packages))
	for id, pkg := range packages {
		if pkg == nil {
			continue
		}
		ids = append(ids, id)
	}
	sort.Strings(ids)

	result := make([]InstalledPackage, 0, len(ids))
	for _, id := range ids {
		result = append(result, InstalledPackage{InstallID: id, Package: packages[id]})
	}
	return result
}
