package tokens

import (
	"context"
	"log/slog"
	"sync"

	"github.com/BearBump/PickupBox/internal/i18n"
	"github.com/BearBump/PickupBox/internal/models"
	"github.com/BearBump/PickupBox/internal/state"
)

// Token ids exposed to automations.
const (
	NextMatavfall  = "next_matavfall"
	NextRestavfall = "next_restavfall"
)

type Token struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Value string `json:"value"`
}

type Store interface {
	Subscribe(key string, fn state.Handler) (unsubscribe func())
	PickupRecord(ctx context.Context) (models.PickupRecord, error)
}

// Publisher mirrors the stored pickup dates into token values.
type Publisher struct {
	cat *i18n.Catalog

	mu     sync.RWMutex
	values map[string]string
	unsubs []func()
}

func New(cat *i18n.Catalog) *Publisher {
	return &Publisher{cat: cat, values: map[string]string{}}
}

func tokenID(w models.WasteStream) string {
	return "next_" + string(w)
}

// Attach loads the current dates and follows every later write of them.
func (p *Publisher) Attach(ctx context.Context, st Store) error {
	for _, w := range models.WasteStreams {
		p.unsubs = append(p.unsubs, st.Subscribe(string(w), p.onSet))
	}

	rec, err := st.PickupRecord(ctx)
	if err != nil {
		return err
	}
	p.mu.Lock()
	for w, v := range rec {
		id := tokenID(w)
		if _, seen := p.values[id]; !seen {
			p.values[id] = v
		}
	}
	p.mu.Unlock()
	return nil
}

func (p *Publisher) Detach() {
	for _, u := range p.unsubs {
		u()
	}
	p.unsubs = nil
}

func (p *Publisher) onSet(key, value string) {
	slog.Info("New date for "+key+": "+value, "key", key)
	p.mu.Lock()
	p.values["next_"+key] = value
	p.mu.Unlock()
}

func (p *Publisher) Value(id string) (string, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	v, ok := p.values[id]
	return v, ok
}

// Tokens returns both tokens with localized titles. Unset values are empty.
func (p *Publisher) Tokens() []Token {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]Token, 0, len(models.WasteStreams))
	for _, w := range models.WasteStreams {
		id := tokenID(w)
		out = append(out, Token{ID: id, Title: p.cat.T("tokens."+id, nil), Value: p.values[id]})
	}
	return out
}
