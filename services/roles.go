package services

import (
	"publication-portal-api/models"
)

// WorkflowRole is the single effective role an actor holds for one
// workflow request. UI buttons assume exactly one active role, so the
// resolver precedence below is fixed.
type WorkflowRole string

const (
	RoleSubmissionsCoordinator WorkflowRole = "submissions_coordinator"
	RoleProofreader            WorkflowRole = "proofreader"
	RoleLeadDesign             WorkflowRole = "lead_design"
	RoleEditorInChief          WorkflowRole = "editor_in_chief"
)

// Actor is the resolved identity acting on the workflow for one request.
// OfficerOverride marks a role derived from officer membership rather than
// an explicit committee position; such actors may perform transitions that
// are otherwise gated to a more junior role.
type Actor struct {
	UserID          int
	Role            WorkflowRole
	OfficerOverride bool
}

// ResolveWorkflowRole computes the effective role from the persisted
// position and broad-role names. Precedence is evaluated strictly in
// order: Submissions Coordinator, Proofreader, Lead Design,
// Editor-in-Chief, then the officer fallback. It is a pure function and
// is recomputed fresh on every request.
func ResolveWorkflowRole(positions, roles []string, officerOnlyPosition bool) (WorkflowRole, bool, bool) {
	has := func(name string) bool {
		for _, p := range positions {
			if p == name {
				return true
			}
		}
		return false
	}

	switch {
	case has(models.PositionSubmissionsCoordinator):
		return RoleSubmissionsCoordinator, false, true
	case has(models.PositionProofreader):
		return RoleProofreader, false, true
	case has(models.PositionLeadDesign):
		return RoleLeadDesign, false, true
	case has(models.PositionEditorInChief):
		return RoleEditorInChief, false, true
	}

	// Officers act as the most senior reviewer when they hold no explicit
	// committee position.
	for _, r := range roles {
		if r == models.RoleOfficer {
			return RoleEditorInChief, true, true
		}
	}
	if officerOnlyPosition {
		return RoleEditorInChief, true, true
	}

	return "", false, false
}

// ResolveActor builds the workflow actor for a loaded user record, or
// reports failure when the user holds no workflow role at all.
func ResolveActor(user *models.User) (Actor, bool) {
	role, override, ok := ResolveWorkflowRole(user.PositionNames(), user.RoleNames(), user.HasOfficerOnlyPosition())
	if !ok {
		return Actor{}, false
	}
	return Actor{UserID: user.UserID, Role: role, OfficerOverride: override}, true
}
