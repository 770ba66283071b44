package domain

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// Span times one stage of a run. spans can nest through a sub-profile
type Span struct {
	Name    string    `json:"name"`
	startTs time.Time `json:"-"`
	sub     *Profile  `json:"-"`

	SubSpans  []*Span `json:"subSpans,omitempty"`
	ElapsedMs *int64  `json:"elapsedMs"`
}

func (s *Span) End() {
	if s.ElapsedMs == nil {
		elapsed := time.Since(s.startTs).Milliseconds()
		s.ElapsedMs = &elapsed
	}
	if s.sub != nil {
		s.SubSpans = s.sub.Spans()
	}
}

// Profile collects the spans of a run. safe to share between the
// workers of one stage
type Profile struct {
	mu      sync.Mutex
	spans   []*Span
	startTs time.Time
	TotalMs *int64 `json:"totalMs"`
}

const ContextProfileKey = "runProfile"

func NewProfile() (*Profile, func()) {
	p := &Profile{
		startTs: time.Now(),
	}
	return p, p.End
}

// GetProfile returns the profile stored on ctx, or a detached one so
// callers never need to nil check
func GetProfile(ctx context.Context) *Profile {
	if p, ok := ctx.Value(ContextProfileKey).(*Profile); ok && p != nil {
		return p
	}
	p, _ := NewProfile()
	return p
}

func WithProfile(ctx context.Context, p *Profile) context.Context {
	return context.WithValue(ctx, ContextProfileKey, p)
}

func (p *Profile) End() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.spans) > 0 {
		p.spans[len(p.spans)-1].End()
	}
	if p.TotalMs == nil {
		t := time.Since(p.startTs).Milliseconds()
		p.TotalMs = &t
	}
}

// StartNewSpan ends the previous span and starts the next one
func (p *Profile) StartNewSpan(name string) (*Span, func()) {
	s := &Span{
		Name:    name,
		startTs: time.Now(),
	}
	p.mu.Lock()
	if len(p.spans) > 0 {
		p.spans[len(p.spans)-1].End()
	}
	p.spans = append(p.spans, s)
	p.mu.Unlock()
	return s, s.End
}

func (p *Profile) Spans() []*Span {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*Span, len(p.spans))
	copy(out, p.spans)
	return out
}

// SubProfile attaches a nested profile to the span; its spans show up
// under SubSpans once the span ends
func (s *Span) SubProfile(ctx context.Context) context.Context {
	if s.sub == nil {
		s.sub, _ = NewProfile()
	}
	return WithProfile(ctx, s.sub)
}

func (p *Profile) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Spans   []*Span `json:"spans"`
		TotalMs *int64  `json:"totalMs"`
	}{
		Spans:   p.Spans(),
		TotalMs: p.TotalMs,
	})
}
