package engine

import "github.com/shlee8313/4-social-insurnace-sub001/internal/domain"

// End-user messages for the distinguishable effective-status causes
const (
	msgFullyActive     = "정상 이용 가능합니다"
	msgAccountInactive = "계정이 비활성화되어 있습니다"
	msgOrgInactive     = "소속 기관이 비활성 상태입니다"
	msgTerminated      = "퇴사 처리된 계정입니다"
	msgSystemEntity    = "시스템 관리자 계정입니다"
)

// ComputeEffectiveStatus combines a user's own flags, their affiliation
// and their roles into one effective status.
//
// Override rules, in order: a terminated user is terminated no matter
// what; a system entity is always active; otherwise the organization's
// non-active status replaces the member's direct status, while an
// active organization passes the direct status through unchanged.
//
// forRestore marks a restoration request. It is the only case where a
// terminated user is still classified, and the classification then
// considers inactive role assignments, because the roles that decide
// the entity type were themselves deactivated by the termination.
func ComputeEffectiveStatus(user *domain.User, aff Affiliation, roles []*domain.UserRole, forRestore bool) EffectiveStatus {
	if user.Terminated() {
		es := EffectiveStatus{
			EntityType:      EntityUser,
			DirectStatus:    domain.StatusTerminated,
			EffectiveStatus: domain.StatusTerminated,
			EntityName:      NameTerminated,
			RoleCategory:    CategoryUnknown,
			Message:         msgTerminated,
		}
		if forRestore {
			class := ClassifyEntityType(user.IsActive, true, roles, aff)
			es.EntityType = class.EntityType
			es.RoleCode = class.RoleCode
			es.RoleCategory = class.RoleCategory
			es.EntityName = aff.Name
		}
		return es
	}

	class := ClassifyEntityType(user.IsActive, forRestore, roles, aff)

	if class.EntityType == EntitySystem {
		return EffectiveStatus{
			EntityType:      EntitySystem,
			DirectStatus:    user.DirectStatus(),
			EffectiveStatus: domain.StatusActive,
			EntityName:      aff.Name,
			RoleCategory:    class.RoleCategory,
			RoleCode:        class.RoleCode,
			Message:         msgSystemEntity,
		}
	}

	direct := user.DirectStatus()
	parent := domain.StatusActive
	if aff.Organization() {
		parent = aff.Status
	}

	effective := direct
	if parent != domain.StatusActive {
		effective = parent
	}

	message := msgFullyActive
	switch {
	case parent != domain.StatusActive:
		message = msgOrgInactive
	case direct != domain.StatusActive:
		message = msgAccountInactive
	}

	return EffectiveStatus{
		EntityType:      class.EntityType,
		DirectStatus:    direct,
		EffectiveStatus: effective,
		EntityName:      aff.Name,
		RoleCategory:    class.RoleCategory,
		RoleCode:        class.RoleCode,
		Message:         message,
	}
}
