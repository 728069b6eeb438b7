package availability

import "github.com/hamed0406/uptimeguard/internal/domain"

// ResolveSloTarget picks the exact scope row, then the team default, then
// nothing.
func ResolveSloTarget(targets []domain.SloTarget, team domain.TeamID, scope domain.SloScopeType, id string) *int64 {
	var teamDefault *int64
	for i := range targets {
		t := targets[i]
		if t.Team != team {
			continue
		}
		if t.ScopeType == scope && t.ScopeID == id {
			v := clampPPM(t.TargetPPM)
			return &v
		}
		if t.ScopeType == domain.SloTeam && teamDefault == nil {
			v := clampPPM(t.TargetPPM)
			teamDefault = &v
		}
	}
	return teamDefault
}
