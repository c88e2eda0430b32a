// Package catalog defines the fixed set of purchasable content packages.
package catalog

import (
	"fmt"

	"studiovault/internal/model"
)

// Package describes one purchasable bundle.
type Package struct {
	Type              model.PackageType
	DisplayName       string
	Description       string
	DefaultPriceCents int64
	// Types lists the content types the package unlocks.
	Types []model.ContentType
	// Supersedes lists packages made redundant by owning this one.
	Supersedes []model.PackageType
}

// Catalog resolves package definitions and prices.
type Catalog struct {
	packages map[model.PackageType]Package
}

// New builds the catalog with the configured default prices.
func New(additional3VideosCents, allContentCents int64) *Catalog {
	return &Catalog{packages: map[model.PackageType]Package{
		model.PackageAdditional3Videos: {
			Type:              model.PackageAdditional3Videos,
			DisplayName:       "3 Additional Videos",
			Description:       "3 more videos beyond the free quota, no headshots",
			DefaultPriceCents: additional3VideosCents,
			Types:             []model.ContentType{model.ContentTypeVideo},
		},
		model.PackageAllRemainingContent: {
			Type:              model.PackageAllRemainingContent,
			DisplayName:       "All Remaining Content",
			Description:       "every video and headshot in the project",
			DefaultPriceCents: allContentCents,
			Types:             []model.ContentType{model.ContentTypeVideo, model.ContentTypeHeadshot},
			Supersedes:        []model.PackageType{model.PackageAdditional3Videos},
		},
	}}
}

// Lookup returns the package definition for pkg.
func (c *Catalog) Lookup(pkg model.PackageType) (Package, bool) {
	p, ok := c.packages[pkg]
	return p, ok
}

// PriceFor returns the price in cents of pkg for project, preferring the
// project's override when one is set.
func (c *Catalog) PriceFor(pkg model.PackageType, project *model.Project) (int64, error) {
	p, ok := c.packages[pkg]
	if !ok {
		return 0, fmt.Errorf("price for %q: %w", pkg, model.ErrInvalidPackage)
	}
	if project != nil {
		switch pkg {
		case model.PackageAdditional3Videos:
			if project.Additional3VideosPriceCents != nil {
				return *project.Additional3VideosPriceCents, nil
			}
		case model.PackageAllRemainingContent:
			if project.AllContentPriceCents != nil {
				return *project.AllContentPriceCents, nil
			}
		}
	}
	return p.DefaultPriceCents, nil
}

// ScopeCovers reports whether owning pkg unlocks content of type t.
func (c *Catalog) ScopeCovers(pkg model.PackageType, t model.ContentType) bool {
	p, ok := c.packages[pkg]
	if !ok {
		return false
	}
	for _, covered := range p.Types {
		if covered == t {
			return true
		}
	}
	return false
}

// Owned reports whether ent already grants pkg, directly or through a
// superseding package.
func (c *Catalog) Owned(pkg model.PackageType, ent *model.ProjectEntitlement) bool {
	if ent.Owns(pkg) {
		return true
	}
	for _, other := range c.packages {
		if !ent.Owns(other.Type) {
			continue
		}
		for _, s := range other.Supersedes {
			if s == pkg {
				return true
			}
		}
	}
	return false
}
