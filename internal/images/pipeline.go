package images

import (
	"context"
	"log/slog"
	"os"

	"github.com/nexuus/creditcard-sub000/internal/cards/rewardsapi"
)

// Request carries the card context needed to resolve or synthesize its
// artwork.
type Request struct {
	CardID   string
	Name     string
	Issuer   string
	Category string
}

// Pipeline resolves card artwork through five tiers and never fails: the
// worst case is a synthesized placeholder.
type Pipeline struct {
	memory  *MemoryCache
	disk    *DiskCache
	mapping *Mapping
	client  *rewardsapi.Client
	logger  *slog.Logger
}

// NewPipeline assembles the image resolution pipeline. A nil logger falls
// back to slog.Default().
func NewPipeline(memory *MemoryCache, disk *DiskCache, mapping *Mapping, client *rewardsapi.Client, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		memory:  memory,
		disk:    disk,
		mapping: mapping,
		client:  client,
		logger:  logger,
	}
}

// Resolve returns displayable image bytes for the card. Tiers, in order:
// memory cache, disk cache, mapping database, remote image metadata, and
// finally a generated placeholder.
func (p *Pipeline) Resolve(ctx context.Context, req Request) []byte {
	if data, ok := p.memory.Get(req.CardID); ok {
		return data
	}

	if data, ok := p.disk.Get(req.CardID); ok {
		p.memory.Put(req.CardID, data)
		return data
	}

	if data, ok := p.resolveFromMapping(ctx, req); ok {
		return data
	}

	if data, ok := p.resolveFromRemote(ctx, req); ok {
		return data
	}

	p.logger.Debug("falling back to placeholder", "card", req.CardID)
	data := Placeholder(req.CardID, req.Name, req.Issuer, req.Category)
	p.writeBack(req.CardID, data)
	return data
}

// resolveFromMapping tries an exact mapping record for the ID, then a
// substring match on issuer+name. A pending record short-circuits straight
// to the placeholder tier by failing both this tier and the remote one.
func (p *Pipeline) resolveFromMapping(ctx context.Context, req Request) ([]byte, bool) {
	rec, ok := p.mapping.Get(req.CardID)
	matched := false
	if !ok {
		rec, ok = p.mapping.Match(req.Issuer, req.Name)
		matched = ok
	}
	if !ok || rec.Source == SourcePending {
		return nil, false
	}

	data := p.loadRecord(ctx, rec)
	if data == nil {
		return nil, false
	}

	p.writeBack(req.CardID, data)
	if matched {
		p.mapping.Upsert(ctx, Record{
			CardID:    req.CardID,
			Issuer:    req.Issuer,
			Name:      req.Name,
			RemoteURL: rec.RemoteURL,
			LocalPath: rec.LocalPath,
			Source:    SourceMatched,
		})
	}
	return data, true
}

// loadRecord fetches a record's bytes from its local path when present,
// otherwise from its remote URL.
func (p *Pipeline) loadRecord(ctx context.Context, rec Record) []byte {
	if rec.LocalPath != "" {
		if data, err := os.ReadFile(rec.LocalPath); err == nil && len(data) > 0 {
			return data
		}
		p.logger.Warn("mapped local image unreadable", "card", rec.CardID, "path", rec.LocalPath)
	}
	if rec.RemoteURL == "" {
		return nil
	}

	data, err := p.client.DownloadImage(ctx, rec.RemoteURL)
	if err != nil {
		p.logger.Warn("mapped image download failed", "card", rec.CardID, "error", err)
		return nil
	}
	return data
}

// resolveFromRemote queries the image-metadata endpoint and downloads the
// first usable URL. A card with no mapping record that comes back empty is
// marked pending so the endpoint is not asked again.
func (p *Pipeline) resolveFromRemote(ctx context.Context, req Request) ([]byte, bool) {
	if rec, ok := p.mapping.Get(req.CardID); ok && rec.Source == SourcePending {
		return nil, false
	}

	metas, err := p.client.GetCardImage(ctx, req.CardID)
	if err != nil {
		p.logger.Warn("image metadata fetch failed", "card", req.CardID, "error", err)
		return nil, false
	}

	for _, meta := range metas {
		if meta.CardImageURL == "" {
			continue
		}
		data, err := p.client.DownloadImage(ctx, meta.CardImageURL)
		if err != nil {
			p.logger.Warn("image download failed", "card", req.CardID, "url", meta.CardImageURL, "error", err)
			continue
		}

		p.writeBack(req.CardID, data)
		p.mapping.Upsert(ctx, Record{
			CardID:    req.CardID,
			Issuer:    req.Issuer,
			Name:      req.Name,
			RemoteURL: meta.CardImageURL,
			Source:    SourceAPI,
		})
		return data, true
	}

	p.mapping.MarkPending(ctx, req.CardID, req.Issuer, req.Name)
	return nil, false
}

func (p *Pipeline) writeBack(cardID string, data []byte) {
	p.memory.Put(cardID, data)
	if err := p.disk.Put(cardID, data); err != nil {
		p.logger.Warn("disk cache write failed", "card", cardID, "error", err)
	}
}

// ClearCaches empties the memory and disk tiers and drops every mapping
// record that was not manually curated.
func (p *Pipeline) ClearCaches(ctx context.Context) error {
	p.memory.Clear()
	if err := p.disk.Clear(); err != nil {
		return err
	}
	p.mapping.ClearNonManual(ctx)
	return nil
}
