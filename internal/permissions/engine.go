package permissions

import (
	"sort"

	"github.com/victorivanov/parley/internal/models"
)

// ComputeEffective resolves the final permission set for a member in one
// channel. It is pure: it never mutates its inputs and always returns a
// freshly allocated set. It is also total over well-formed inputs — unknown
// tokens are dropped and role ids with no matching role are ignored.
//
// Resolution order, each step short-circuiting when noted:
//  1. DM channel: the fixed DM set, no role logic at all.
//  2. Server owner: the full catalog.
//  3. Base role permissions, then union of the member's role permissions.
//  4. ADMINISTRATOR anywhere in the union: the full catalog.
//  5. Overrides, later steps dominating earlier ones on the same token:
//     base-role override, role overrides in ascending position order,
//     member override last.
func ComputeEffective(member *models.Member, allRoles []models.Role, baseRole *models.Role, channel *models.Channel) Set {
	if channel.IsDM() {
		return DMSet()
	}

	if member.IsOwner {
		return All()
	}

	roleByID := make(map[int64]*models.Role, len(allRoles))
	for i := range allRoles {
		roleByID[allRoles[i].ID] = &allRoles[i]
	}

	base := FromTokens(baseRole.Permissions)

	memberRoles := make([]*models.Role, 0, len(member.RoleIDs))
	for _, roleID := range member.RoleIDs {
		role, ok := roleByID[roleID]
		if !ok {
			// Stale reference to a deleted role; skip.
			continue
		}
		memberRoles = append(memberRoles, role)
		base.AddTokens(role.Permissions)
	}

	if base.Has(Administrator) {
		return All()
	}

	effective := base.Clone()

	roleOverrides := make(map[int64]*models.Override, len(channel.Overrides))
	var memberOverride *models.Override
	for i := range channel.Overrides {
		o := &channel.Overrides[i]
		switch o.TargetType {
		case models.OverrideTargetRole:
			roleOverrides[o.TargetID] = o
		case models.OverrideTargetMember:
			if o.TargetID == member.UserID {
				memberOverride = o
			}
		}
	}

	if o, ok := roleOverrides[baseRole.ID]; ok {
		effective.AddTokens(o.Allow)
		effective.RemoveTokens(o.Deny)
	}

	// Ascending position so a higher role's override wins ties.
	sort.SliceStable(memberRoles, func(i, j int) bool {
		return memberRoles[i].Position < memberRoles[j].Position
	})
	for _, role := range memberRoles {
		if o, ok := roleOverrides[role.ID]; ok {
			effective.AddTokens(o.Allow)
			effective.RemoveTokens(o.Deny)
		}
	}

	if memberOverride != nil {
		effective.AddTokens(memberOverride.Allow)
		effective.RemoveTokens(memberOverride.Deny)
	}

	return effective
}
