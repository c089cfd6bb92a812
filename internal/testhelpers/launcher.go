package testhelpers

import (
	"context"
	"github.com/myrjola/blackwood/internal/launcher"
	"github.com/stretchr/testify/require"
	"net/url"
	"sync"
	"testing"
)

// Launcher records the opened URLs instead of starting a browser. A non-nil Err fails every launch after Retries
// retries.
type Launcher struct {
	Err     error
	Retries int

	mu   sync.Mutex
	urls []string
}

func (l *Launcher) Open(_ context.Context, u string) (launcher.Result, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.urls = append(l.urls, u)
	if l.Err != nil {
		return launcher.Result{Strategy: "", Retries: l.Retries}, l.Err
	}
	return launcher.Result{Strategy: "fake", Retries: 0}, nil
}

// URLs returns the URLs opened so far.
func (l *Launcher) URLs() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.urls...)
}

// LastQuery parses the query of the most recently opened URL.
func (l *Launcher) LastQuery(t *testing.T) url.Values {
	t.Helper()
	urls := l.URLs()
	require.NotEmpty(t, urls, "nothing was launched")
	u, err := url.Parse(urls[len(urls)-1])
	require.NoError(t, err)
	return u.Query()
}
