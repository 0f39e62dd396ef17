package catalog

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"go.uber.org/zap"

	"github.com/HendryAvila/craftgraph/internal/recipe"
)

// NameNotifier is told about every item name the merged catalog refers to,
// so it can start tracking them. Implemented by the inventory store.
type NameNotifier interface {
	EnsureNames(ctx context.Context, names []string) error
}

// SourceState describes what happened to one catalog file during a load.
type SourceState string

const (
	SourceMissing SourceState = "missing"
	SourceEmpty   SourceState = "empty"
	SourceLoaded  SourceState = "loaded"
	SourceFailed  SourceState = "failed"
	SourceSkipped SourceState = "skipped"
)

// SourceStatus is the load outcome of one catalog file.
type SourceStatus struct {
	File    string      `json:"file"`
	State   SourceState `json:"state"`
	Entries int         `json:"entries"`
	Error   string      `json:"error,omitempty"`
}

// Report summarizes one Load call.
type Report struct {
	Sources     []SourceStatus `json:"sources"`
	LegacyUsed  bool           `json:"legacy_used"`
	Entries     int            `json:"entries"`
	Names       int            `json:"names"`
	NotifyError string         `json:"notify_error,omitempty"`
}

// readFile is swapped in tests.
var readFile = os.ReadFile

// Loader reads and merges the catalog files of a Layout.
type Loader struct {
	layout   Layout
	notifier NameNotifier
	logger   *zap.Logger
}

// NewLoader creates a Loader. notifier and logger may be nil.
func NewLoader(layout Layout, notifier NameNotifier, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{layout: layout, notifier: notifier, logger: logger}
}

// Load reads the catalogs and merges them in precedence order: base, legacy,
// remote, remote forge. The legacy catalog is read only when the remote
// catalog has no entries. Problems with a single source are recorded in the
// report and never stop the others from loading.
func (l *Loader) Load(ctx context.Context) (*recipe.RecipeMap, Report) {
	var rep Report

	base, baseStatus := l.readSource(BaseFile)
	remote, remoteStatus := l.readSource(RemoteFile)
	forge, forgeStatus := l.readSource(RemoteForgeFile)

	var legacy *recipe.RecipeMap
	legacyStatus := SourceStatus{File: LegacyFile, State: SourceSkipped}
	if remoteStatus.State != SourceLoaded {
		legacy, legacyStatus = l.readSource(LegacyFile)
		rep.LegacyUsed = legacyStatus.State == SourceLoaded
	}

	rep.Sources = []SourceStatus{baseStatus, legacyStatus, remoteStatus, forgeStatus}
	merged := Merge(base, legacy, remote, forge)
	rep.Entries = merged.Len()

	names := recipe.ReferencedNames(merged)
	rep.Names = len(names)
	if err := l.notify(ctx, names); err != nil {
		rep.NotifyError = err.Error()
		l.logger.Warn("name notification failed", zap.Error(err))
	}

	l.logger.Debug("catalog loaded",
		zap.Int("entries", rep.Entries),
		zap.Int("names", rep.Names),
		zap.Bool("legacy_used", rep.LegacyUsed))
	return merged, rep
}

// Merge overwrites left to right by output name. Later maps replace whole
// entries; an overwritten output keeps its first position. Nil maps are
// skipped. Ingredient maps are shared with the inputs.
func Merge(maps ...*recipe.RecipeMap) *recipe.RecipeMap {
	out := recipe.NewRecipeMap()
	for _, m := range maps {
		if m == nil {
			continue
		}
		for p := m.Oldest(); p != nil; p = p.Next() {
			out.Set(p.Key, p.Value)
		}
	}
	return out
}

func (l *Loader) readSource(file string) (m *recipe.RecipeMap, st SourceStatus) {
	st = SourceStatus{File: file}
	defer func() {
		if r := recover(); r != nil {
			m = nil
			st.State = SourceFailed
			st.Entries = 0
			st.Error = fmt.Sprintf("panic: %v", r)
			l.logger.Error("catalog source panicked", zap.String("file", file), zap.Any("panic", r))
		}
	}()

	data, err := readFile(l.layout.Path(file))
	switch {
	case errors.Is(err, fs.ErrNotExist):
		st.State = SourceMissing
		return nil, st
	case err != nil:
		st.State = SourceFailed
		st.Error = err.Error()
		l.logger.Warn("catalog source unreadable", zap.String("file", file), zap.Error(err))
		return nil, st
	case len(bytes.TrimSpace(data)) == 0:
		st.State = SourceEmpty
		return nil, st
	}

	m, err = ParseRecipeMap(data)
	if err != nil {
		st.State = SourceFailed
		st.Error = err.Error()
		l.logger.Warn("catalog source malformed", zap.String("file", file), zap.Error(err))
		return nil, st
	}
	if m.Len() == 0 {
		st.State = SourceEmpty
		return nil, st
	}
	st.State = SourceLoaded
	st.Entries = m.Len()
	return m, st
}

// notify is best effort: a failing or panicking notifier only produces an
// error for the report.
func (l *Loader) notify(ctx context.Context, names []string) (err error) {
	if l.notifier == nil || len(names) == 0 {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("notifier panicked: %v", r)
		}
	}()
	return l.notifier.EnsureNames(ctx, names)
}
