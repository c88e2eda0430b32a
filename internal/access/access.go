// Package access decides whether a user may download a content item.
package access

import "studiovault/internal/model"

// Reason names the rule that granted access.
type Reason string

const (
	ReasonFreeSelection Reason = "free_selection"
	ReasonPurchase      Reason = "purchase"
	ReasonAllContent    Reason = "all_remaining_content"
	ReasonAdditional    Reason = "additional_3_videos"
	ReasonDenied        Reason = "denied"
)

// Input is a snapshot of the entitlement state for one (user, item) pair.
type Input struct {
	ContentType  model.ContentType
	HasSelection bool
	HasPurchase  bool
	Entitlement  *model.ProjectEntitlement
	// Covers reports whether a package unlocks a content type. Package
	// entitlements grant nothing when it is nil.
	Covers func(pkg model.PackageType, t model.ContentType) bool
}

func (in Input) packageGrants(pkg model.PackageType) bool {
	return in.Entitlement != nil && in.Covers != nil &&
		in.Entitlement.Owns(pkg) && in.Covers(pkg, in.ContentType)
}

// Decide evaluates the access rules in precedence order; the first match wins.
func Decide(in Input) (bool, Reason) {
	switch {
	case in.HasSelection:
		return true, ReasonFreeSelection
	case in.HasPurchase:
		return true, ReasonPurchase
	case in.packageGrants(model.PackageAllRemainingContent):
		return true, ReasonAllContent
	case in.packageGrants(model.PackageAdditional3Videos):
		return true, ReasonAdditional
	}
	return false, ReasonDenied
}
