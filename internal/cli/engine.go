package cli

import (
	"context"
	"fmt"

	"pdmtracker/internal/archive"
	"pdmtracker/internal/blob"
	"pdmtracker/internal/core"
	"pdmtracker/internal/workbook"
	"pdmtracker/pkg/domain"
)

// openService builds the engine from configuration. The returned func
// releases storage handles.
func (a *app) openService(ctx context.Context, extra ...core.ServiceOption) (*core.Service, func(), error) {
	var blobs blob.Store
	if a.cfg.NeedsBlobStore() {
		var err error
		blobs, err = blob.Open(ctx, a.cfg.Blob)
		if err != nil {
			return nil, nil, fmt.Errorf("open blob store: %w", err)
		}
	}

	store, err := core.OpenKeyValueStore(ctx, a.cfg.Storage, blobs)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s storage: %w", a.cfg.Storage.Driver, err)
	}
	release := func() {
		if closer, ok := store.(domain.ClosableStore); ok {
			if err := closer.Close(); err != nil {
				a.logger.Warn().Err(err).Msg("close storage")
			}
		}
	}

	opts := []core.ServiceOption{core.WithLogger(a.logger)}
	if a.cfg.Archive.Enabled {
		arch, err := archive.New(blobs, archive.WithLinkExpiry(a.cfg.Archive.LinkExpiry))
		if err != nil {
			release()
			return nil, nil, err
		}
		opts = append(opts, core.WithArchive(arch))
	}
	if a.cfg.Schema.File != "" {
		schema, err := workbook.LoadSchemaFile(a.cfg.Schema.File)
		if err != nil {
			release()
			return nil, nil, err
		}
		opts = append(opts, core.WithSchema(schema))
	}
	opts = append(opts, extra...)

	svc, err := core.NewService(ctx, store, opts...)
	if err != nil {
		release()
		return nil, nil, err
	}
	return svc, release, nil
}
