package sqlite

import (
	"net/url"
	"strings"
	"testing"
)

func TestConfig_DSN(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		cfg    Config
		want   map[string]string
		prefix string
	}{
		{
			name:   "defaults add journal and busy timeout",
			cfg:    DefaultConfig(),
			prefix: "file:catalog.db?",
			want:   map[string]string{"mode": "rwc", "_journal_mode": "WAL", "_busy_timeout": "5000"},
		},
		{
			name:   "explicit dsn settings win",
			cfg:    Config{DSN: "file:x.db?_journal_mode=DELETE", JournalMode: "WAL", BusyTimeout: 10},
			prefix: "file:x.db?",
			want:   map[string]string{"_journal_mode": "DELETE", "_busy_timeout": "10"},
		},
		{
			name:   "nothing to add",
			cfg:    Config{DSN: "file::memory:"},
			prefix: "file::memory:",
			want:   map[string]string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := tt.cfg.dsn()
			if !strings.HasPrefix(got, tt.prefix) {
				t.Fatalf("dsn() = %s, want prefix %s", got, tt.prefix)
			}
			_, query, _ := strings.Cut(got, "?")
			params, err := url.ParseQuery(query)
			if err != nil {
				t.Fatalf("ParseQuery() error = %v", err)
			}
			if len(params) != len(tt.want) {
				t.Errorf("dsn() params = %v, want %v", params, tt.want)
			}
			for k, v := range tt.want {
				if params.Get(k) != v {
					t.Errorf("param %s = %q, want %q", k, params.Get(k), v)
				}
			}
		})
	}
}
