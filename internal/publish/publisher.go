// Package publish writes versioned menu documents to blob storage. Every
// save produces an immutable snapshot, updates the version manifest,
// appends an audit line, and only then overwrites the live document, so a
// crash mid-save never leaves readers with an unlisted or missing version.
package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/robertroyster/lookbook-admin/internal/blob"
	"github.com/robertroyster/lookbook-admin/internal/model"
)

// versionIDLayout is filesystem-safe and sorts lexicographically in
// chronological order.
const versionIDLayout = "20060102T150405.000Z"

// MenuKey addresses one published menu.
type MenuKey struct {
	Tenant string
	Store  string
	Menu   string
}

// Validate rejects components that would escape the key layout.
func (k MenuKey) Validate() error {
	for _, part := range []string{k.Tenant, k.Store, k.Menu} {
		if part == "" {
			return eris.New("publish: empty key component")
		}
		if strings.ContainsAny(part, "/\\") || strings.Contains(part, "..") {
			return eris.Errorf("publish: invalid key component %q", part)
		}
	}
	return nil
}

func (k MenuKey) prefix() string {
	return fmt.Sprintf("%s/%s__%s", k.Tenant, k.Store, k.Menu)
}

// LiveKey is the blob key of the live document.
func (k MenuKey) LiveKey() string { return k.prefix() + ".json" }

func (k MenuKey) snapshotKey(versionID string) string {
	return fmt.Sprintf("%s/%s.json", k.prefix(), versionID)
}

func (k MenuKey) manifestKey() string { return k.prefix() + "/manifest.json" }

func (k MenuKey) auditKey(day time.Time) string {
	return fmt.Sprintf("%s/%s.jsonl", k.prefix(), day.UTC().Format("2006-01-02"))
}

// SaveResult reports one completed save.
type SaveResult struct {
	VersionID string
	LiveKey   string
	ItemCount int
}

// Publisher writes menu documents through the snapshot/manifest/audit/live
// sequence. A per-key mutex serializes saves within this process; saves to
// the same key from separate processes can still lose manifest entries.
type Publisher struct {
	blobs blob.Store
	now   func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New creates a Publisher over the given blob store.
func New(blobs blob.Store) *Publisher {
	return &Publisher{
		blobs: blobs,
		now:   time.Now,
		locks: map[string]*sync.Mutex{},
	}
}

func (p *Publisher) keyLock(key MenuKey) *sync.Mutex {
	p.mu.Lock()
	defer p.mu.Unlock()
	l, ok := p.locks[key.prefix()]
	if !ok {
		l = &sync.Mutex{}
		p.locks[key.prefix()] = l
	}
	return l
}

// Save publishes a new version of the menu. The live document is written
// last: readers either see the previous version or the fully recorded new
// one, never an untracked in-between state.
func (p *Publisher) Save(ctx context.Context, key MenuKey, doc *model.MenuDocument, typ model.WriteType, actor string) (*SaveResult, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, eris.New("publish: nil document")
	}

	lock := p.keyLock(key)
	lock.Lock()
	defer lock.Unlock()

	now := p.now().UTC()
	doc.Updated = now
	versionID := now.Format(versionIDLayout)

	payload, err := json.Marshal(doc)
	if err != nil {
		return nil, eris.Wrap(err, "publish: marshal document")
	}

	// 1. Immutable snapshot.
	if err := p.blobs.Put(ctx, key.snapshotKey(versionID), payload, "application/json", nil); err != nil {
		return nil, eris.Wrap(err, "publish: write snapshot")
	}

	// 2. Manifest: newest first, capped. Evicted entries keep their
	// snapshots in blob storage; only the listing is dropped.
	manifest := p.loadManifest(ctx, key)
	entry := model.VersionEntry{
		ID:        versionID,
		Type:      typ,
		Actor:     actor,
		ItemCount: doc.ItemCount(),
	}
	manifest.Current = versionID
	manifest.Versions = append([]model.VersionEntry{entry}, manifest.Versions...)
	if len(manifest.Versions) > model.MaxManifestVersions {
		manifest.Versions = manifest.Versions[:model.MaxManifestVersions]
	}
	manifestData, err := json.Marshal(manifest)
	if err != nil {
		return nil, eris.Wrap(err, "publish: marshal manifest")
	}
	if err := p.blobs.Put(ctx, key.manifestKey(), manifestData, "application/json", nil); err != nil {
		return nil, eris.Wrap(err, "publish: write manifest")
	}

	// 3. Audit line, bucketed by calendar day.
	if err := p.appendAudit(ctx, key, model.AuditLogEntry{
		Timestamp: now,
		VersionID: versionID,
		Type:      typ,
		Actor:     actor,
		ItemCount: doc.ItemCount(),
	}); err != nil {
		return nil, eris.Wrap(err, "publish: append audit")
	}

	// 4. Live document, overwritten last.
	if err := p.blobs.Put(ctx, key.LiveKey(), payload, "application/json", nil); err != nil {
		return nil, eris.Wrap(err, "publish: write live document")
	}

	zap.L().Info("publish: menu saved",
		zap.String("component", "publish"),
		zap.String("key", key.LiveKey()),
		zap.String("version_id", versionID),
		zap.String("type", string(typ)),
		zap.String("actor", actor),
		zap.Int("item_count", doc.ItemCount()),
	)
	return &SaveResult{VersionID: versionID, LiveKey: key.LiveKey(), ItemCount: doc.ItemCount()}, nil
}

// loadManifest returns the stored manifest, or an empty one when the
// manifest is absent or unreadable. A corrupt manifest costs the listing of
// prior versions but never blocks a save.
func (p *Publisher) loadManifest(ctx context.Context, key MenuKey) *model.VersionManifest {
	manifest := &model.VersionManifest{}
	data, err := p.blobs.Get(ctx, key.manifestKey())
	if err != nil {
		if !eris.Is(err, blob.ErrNotFound) {
			zap.L().Warn("publish: manifest unreadable, starting fresh",
				zap.String("key", key.manifestKey()), zap.Error(err))
		}
		return manifest
	}
	if err := json.Unmarshal(data, manifest); err != nil {
		zap.L().Warn("publish: manifest corrupt, starting fresh",
			zap.String("key", key.manifestKey()), zap.Error(err))
		return &model.VersionManifest{}
	}
	return manifest
}

func (p *Publisher) appendAudit(ctx context.Context, key MenuKey, entry model.AuditLogEntry) error {
	line, err := json.Marshal(entry)
	if err != nil {
		return eris.Wrap(err, "marshal audit entry")
	}

	auditKey := key.auditKey(entry.Timestamp)
	existing, err := p.blobs.Get(ctx, auditKey)
	if err != nil && !eris.Is(err, blob.ErrNotFound) {
		return eris.Wrapf(err, "read audit log %s", auditKey)
	}

	buf := make([]byte, 0, len(existing)+len(line)+1)
	buf = append(buf, existing...)
	buf = append(buf, line...)
	buf = append(buf, '\n')
	return p.blobs.Put(ctx, auditKey, buf, "application/x-ndjson", nil)
}

// History returns the version manifest for a menu. A menu that has never
// been saved yields an empty manifest, not an error.
func (p *Publisher) History(ctx context.Context, key MenuKey) (*model.VersionManifest, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}
	return p.loadManifest(ctx, key), nil
}

// GetVersion fetches one snapshot by version id.
func (p *Publisher) GetVersion(ctx context.Context, key MenuKey, versionID string) (*model.MenuDocument, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}
	if versionID == "" || strings.ContainsAny(versionID, "/\\") {
		return nil, eris.Errorf("publish: invalid version id %q", versionID)
	}
	data, err := p.blobs.Get(ctx, key.snapshotKey(versionID))
	if err != nil {
		return nil, eris.Wrapf(err, "publish: load version %s", versionID)
	}
	var doc model.MenuDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, eris.Wrapf(err, "publish: decode version %s", versionID)
	}
	return &doc, nil
}

// GetLive fetches the live document for a menu.
func (p *Publisher) GetLive(ctx context.Context, key MenuKey) (*model.MenuDocument, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}
	data, err := p.blobs.Get(ctx, key.LiveKey())
	if err != nil {
		return nil, eris.Wrap(err, "publish: load live document")
	}
	var doc model.MenuDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, eris.Wrap(err, "publish: decode live document")
	}
	return &doc, nil
}
