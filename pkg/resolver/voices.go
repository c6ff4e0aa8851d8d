package resolver

import (
	"context"
	"fmt"

	gocache "github.com/patrickmn/go-cache"

	"github.com/nadzzz/respeecher/pkg/api"
)

// Voices returns the resolvable voice catalogue: every voice with at least one
// narration style. It is fetched once and shared by concurrent first callers.
func (r *Resolver) Voices(ctx context.Context) ([]api.Voice, error) {
	if v, ok := r.catalogue.Get(catalogueKey); ok {
		return v.([]api.Voice), nil
	}

	v, err := r.shared(ctx, catalogueKey, func(ctx context.Context) (any, error) {
		if v, ok := r.catalogue.Get(catalogueKey); ok {
			return v, nil
		}
		voices, err := r.fetchVoices(ctx)
		if err != nil {
			return nil, err
		}
		r.catalogue.Set(catalogueKey, voices, gocache.NoExpiration)
		return voices, nil
	})
	if err != nil {
		return nil, fmt.Errorf("fetching voices: %w", err)
	}
	return v.([]api.Voice), nil
}

func (r *Resolver) fetchVoices(ctx context.Context) ([]api.Voice, error) {
	var voices []api.Voice
	pageSize := r.backend.PageSize()
	for offset := 0; ; offset += pageSize {
		page, err := r.backend.ListVoices(ctx, offset)
		if err != nil {
			return nil, err
		}
		for _, v := range page.List {
			if len(v.NarrationStyles) > 0 {
				voices = append(voices, v)
			}
		}
		if lastPage(len(page.List), page.Pagination, pageSize) {
			break
		}
	}
	r.logger.Debug("voice catalogue loaded", "voices", len(voices))
	return voices, nil
}

// VoiceAndStyle resolves a voice name and an optional narration style name.
// Without a style name the first style flagged default is chosen. Names match
// exactly and case-sensitively.
func (r *Resolver) VoiceAndStyle(ctx context.Context, voiceName, styleName string) (VoiceSelection, error) {
	key := voiceName + "\x00" + styleName
	if sel, ok := r.selections.Get(key); ok {
		return sel.(VoiceSelection), nil
	}

	voices, err := r.Voices(ctx)
	if err != nil {
		return VoiceSelection{}, err
	}

	voice, ok := find(voices, func(v api.Voice) bool { return v.Name == voiceName })
	if !ok {
		return VoiceSelection{}, &NotFoundError{Kind: "voice", Name: voiceName}
	}

	var style api.NarrationStyle
	if styleName != "" {
		style, ok = find(voice.NarrationStyles, func(ns api.NarrationStyle) bool { return ns.Name == styleName })
	} else {
		style, ok = find(voice.NarrationStyles, func(ns api.NarrationStyle) bool { return ns.IsDefault })
	}
	if !ok {
		return VoiceSelection{}, &NotFoundError{Kind: "narration style", Name: styleName, Voice: voiceName}
	}

	sel := VoiceSelection{VoiceID: voice.ID, NarrationStyleID: style.ID, NarrationStyle: style}
	r.selections.Set(key, sel, gocache.NoExpiration)
	return sel, nil
}

func find[T any](items []T, match func(T) bool) (T, bool) {
	for _, it := range items {
		if match(it) {
			return it, true
		}
	}
	var zero T
	return zero, false
}
