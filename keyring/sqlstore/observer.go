package sqlstore

import (
	"context"
	"time"

	glog "github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-session/core"
)

const observerTimeout = 5 * time.Second

// Observer adapts a Store to core.PersistenceObserver. The release
// snapshot reflects the completed mutation: it is upserted, or the row
// removed when the session ended unauthenticated. Failures are logged,
// never propagated.
type Observer struct {
	store  *Store
	logger core.Logger
}

type ObserverOption func(*Observer)

func WithLogger(logger core.Logger) ObserverOption {
	return func(o *Observer) {
		if logger != nil {
			o.logger = logger
		}
	}
}

func NewObserver(store *Store, options ...ObserverOption) *Observer {
	o := &Observer{store: store, logger: glog.Nop()}
	for _, opt := range options {
		if opt != nil {
			opt(o)
		}
	}
	return o
}

func (o *Observer) AcquireSessionLock(accountName string, snapshot core.Snapshot) {}

func (o *Observer) ReleaseSessionLock(accountName string, snapshot core.Snapshot) {
	if o == nil || o.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), observerTimeout)
	defer cancel()

	if snapshot.Empty() {
		if err := o.store.Delete(ctx, accountName); err != nil {
			o.logger.Error("session row removal failed", "account_name", accountName, "error", err)
		}
		return
	}
	if snapshot.AccountName == "" {
		snapshot.AccountName = accountName
	}
	if err := o.store.Save(ctx, snapshot); err != nil {
		o.logger.Error("session row write failed", "account_name", accountName, "error", err)
	}
}

var _ core.PersistenceObserver = (*Observer)(nil)
