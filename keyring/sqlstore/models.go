package sqlstore

import (
	"time"

	"github.com/uptrace/bun"

	"github.com/goliatone/go-session/core"
)

type sessionRecord struct {
	bun.BaseModel `bun:"table:session_snapshots,alias:ss"`

	ID           string    `bun:"id,pk"`
	AccountName  string    `bun:"account_name,notnull,unique"`
	UID          string    `bun:"uid,notnull"`
	AccessToken  string    `bun:"access_token,notnull"`
	RefreshToken string    `bun:"refresh_token,notnull"`
	Scopes       []string  `bun:"scopes,type:jsonb,notnull"`
	Environment  string    `bun:"environment"`
	CreatedAt    time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt    time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

func (r *sessionRecord) toSnapshot() core.Snapshot {
	if r == nil {
		return core.Snapshot{}
	}
	return core.Snapshot{
		UID:          r.UID,
		AccessToken:  r.AccessToken,
		RefreshToken: r.RefreshToken,
		Scopes:       append([]string(nil), r.Scopes...),
		Environment:  r.Environment,
		AccountName:  r.AccountName,
	}
}

func (r *sessionRecord) applySnapshot(snapshot core.Snapshot, now time.Time) {
	r.UID = snapshot.UID
	r.AccessToken = snapshot.AccessToken
	r.RefreshToken = snapshot.RefreshToken
	r.Scopes = append([]string(nil), snapshot.Scopes...)
	r.Environment = snapshot.Environment
	r.UpdatedAt = now
}
