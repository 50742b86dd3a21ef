package repository

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/MyCarrier-DevOps/gitter/internal/cache"
	"github.com/MyCarrier-DevOps/gitter/internal/domain"
)

// ConfigurationFile is the cached content of one git configuration file.
// Writes go through git first and are applied to the cache only when git
// succeeds. Writes are serialized per file: the existence check, the git
// write and the cache update happen under one lock.
type ConfigurationFile struct {
	acc      domain.ConfigAccessor
	scope    domain.ConfigFile
	fileName string
	log      Logger

	writeMu sync.Mutex
	params  *cache.Registry[string, *ConfigParameter]
}

func newConfigurationFile(acc domain.ConfigAccessor, scope domain.ConfigFile, fileName string, log Logger) *ConfigurationFile {
	if log == nil {
		log = nopLogger{}
	}
	return &ConfigurationFile{
		acc:      acc,
		scope:    scope,
		fileName: fileName,
		log:      log,
		params:   cache.NewRegistry[string, *ConfigParameter](),
	}
}

// OpenRepositoryFile loads the .git/config of the accessor's working tree.
func OpenRepositoryFile(ctx context.Context, acc domain.ConfigAccessor, log Logger) (*ConfigurationFile, error) {
	return openConfigurationFile(ctx, acc, domain.ConfigFileRepository, "", log)
}

// OpenSystemFile loads the system-wide configuration.
func OpenSystemFile(ctx context.Context, acc domain.ConfigAccessor, log Logger) (*ConfigurationFile, error) {
	return openConfigurationFile(ctx, acc, domain.ConfigFileSystem, "", log)
}

// OpenCurrentUserFile loads the current user's global configuration.
func OpenCurrentUserFile(ctx context.Context, acc domain.ConfigAccessor, log Logger) (*ConfigurationFile, error) {
	return openConfigurationFile(ctx, acc, domain.ConfigFileUser, "", log)
}

// OpenFile loads an arbitrary configuration file.
func OpenFile(ctx context.Context, acc domain.ConfigAccessor, fileName string, log Logger) (*ConfigurationFile, error) {
	if strings.TrimSpace(fileName) == "" {
		return nil, fmt.Errorf("%w: empty file name", domain.ErrInvalidConfigFile)
	}
	return openConfigurationFile(ctx, acc, domain.ConfigFileOther, fileName, log)
}

func openConfigurationFile(ctx context.Context, acc domain.ConfigAccessor, scope domain.ConfigFile, fileName string, log Logger) (*ConfigurationFile, error) {
	f := newConfigurationFile(acc, scope, fileName, log)
	if err := f.Refresh(ctx); err != nil {
		return nil, err
	}
	return f, nil
}

// Scope returns which configuration file this is.
func (f *ConfigurationFile) Scope() domain.ConfigFile { return f.scope }

// FileName returns the explicit file name for ConfigFileOther.
func (f *ConfigurationFile) FileName() string { return f.fileName }

// OnParameterCreated subscribes fn to parameters appearing in the cache.
func (f *ConfigurationFile) OnParameterCreated(fn func(*ConfigParameter)) {
	f.params.OnCreated(fn)
}

// OnParameterDeleted subscribes fn to parameters leaving the cache.
func (f *ConfigurationFile) OnParameterDeleted(fn func(*ConfigParameter)) {
	f.params.OnDeleted(fn)
}

// OnParameterChanged subscribes fn to value changes of cached parameters.
func (f *ConfigurationFile) OnParameterChanged(fn func(*ConfigParameter)) {
	f.params.OnUpdated(fn)
}

// Refresh re-reads the file and reconciles the cache: new keys are
// created, changed values updated and vanished keys deleted. A failed read
// or parse leaves the cache unchanged.
func (f *ConfigurationFile) Refresh(ctx context.Context) error {
	recs, err := f.acc.QueryConfig(ctx, domain.QueryConfigParameters{
		ConfigFile: f.scope,
		FileName:   f.fileName,
	})
	if err != nil {
		return err
	}
	stats, err := cache.Sync(f.params, recs, f.syncer())
	if err != nil {
		return err
	}

	fields := statsFields(stats)
	fields["scope"] = f.scope.String()
	f.log.Debug(ctx, "configuration synchronized", fields)
	return nil
}

// clear drops every cached parameter, marking each deleted.
func (f *ConfigurationFile) clear() error {
	_, err := cache.Sync(f.params, nil, f.syncer())
	return err
}

func (f *ConfigurationFile) syncer() cache.Syncer[string, *ConfigParameter, domain.ConfigParameterData] {
	return cache.Syncer[string, *ConfigParameter, domain.ConfigParameterData]{
		KeyOf: func(rec domain.ConfigParameterData) string { return rec.Name },
		Create: func(rec domain.ConfigParameterData) (*ConfigParameter, error) {
			return newConfigParameter(f, rec.Name, rec.Value), nil
		},
		Update: func(p *ConfigParameter, rec domain.ConfigParameterData) bool {
			return p.setCachedValue(rec.Value)
		},
		OnDeleted:   (*ConfigParameter).markDeleted,
		RemoveStale: true,
	}
}

// CreateParameter writes a new parameter. Fails with
// domain.ErrParameterExists if name is already cached.
func (f *ConfigurationFile) CreateParameter(ctx context.Context, name, value string) (*ConfigParameter, error) {
	f.writeMu.Lock()
	defer f.writeMu.Unlock()

	if f.params.Exists(name) {
		return nil, fmt.Errorf("%w: %s", domain.ErrParameterExists, name)
	}
	if err := f.write(ctx, name, value); err != nil {
		return nil, err
	}
	return f.cacheValue(name, value), nil
}

// SetValue writes name, updating the cached parameter or creating it.
func (f *ConfigurationFile) SetValue(ctx context.Context, name, value string) (*ConfigParameter, error) {
	f.writeMu.Lock()
	defer f.writeMu.Unlock()

	if p, ok := f.params.TryGet(name); ok {
		return p, p.setValue(ctx, value)
	}
	if err := f.write(ctx, name, value); err != nil {
		return nil, err
	}
	return f.cacheValue(name, value), nil
}

// Unset removes name from the file and the cache.
func (f *ConfigurationFile) Unset(ctx context.Context, name string) error {
	f.writeMu.Lock()
	defer f.writeMu.Unlock()

	p, ok := f.params.TryGet(name)
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrParameterNotFound, name)
	}
	return p.unset(ctx)
}

// Get returns the cached parameter or domain.ErrParameterNotFound.
func (f *ConfigurationFile) Get(name string) (*ConfigParameter, error) {
	p, ok := f.params.TryGet(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrParameterNotFound, name)
	}
	return p, nil
}

// TryGet returns the cached parameter if present.
func (f *ConfigurationFile) TryGet(name string) (*ConfigParameter, bool) {
	return f.params.TryGet(name)
}

// Exists reports whether name is cached.
func (f *ConfigurationFile) Exists(name string) bool { return f.params.Exists(name) }

// Count returns the number of cached parameters.
func (f *ConfigurationFile) Count() int { return f.params.Count() }

// Names returns the cached parameter names, sorted.
func (f *ConfigurationFile) Names() []string {
	names := f.params.Keys()
	slices.Sort(names)
	return names
}

// Parameters returns the cached parameters sorted by name.
func (f *ConfigurationFile) Parameters() []*ConfigParameter {
	params := f.params.Values()
	slices.SortFunc(params, func(a, b *ConfigParameter) int {
		return strings.Compare(a.name, b.name)
	})
	return params
}

func (f *ConfigurationFile) write(ctx context.Context, name, value string) error {
	return f.acc.SetConfigValue(ctx, domain.SetConfigValueParameters{
		Name:       name,
		Value:      value,
		ConfigFile: f.scope,
		FileName:   f.fileName,
	})
}

// cacheValue records a successful write, creating the parameter if a
// concurrent caller has not already done so.
func (f *ConfigurationFile) cacheValue(name, value string) *ConfigParameter {
	p, created := f.params.GetOrCreate(name, func() *ConfigParameter {
		return newConfigParameter(f, name, value)
	})
	if !created {
		f.params.Update(name, func(c *ConfigParameter) bool { return c.setCachedValue(value) })
	}
	return p
}

// ConfigParameter is one key of a configuration file.
type ConfigParameter struct {
	file *ConfigurationFile
	name string

	mu      sync.RWMutex
	value   string
	deleted bool
}

func newConfigParameter(file *ConfigurationFile, name, value string) *ConfigParameter {
	return &ConfigParameter{file: file, name: name, value: value}
}

// Name returns the fully qualified key.
func (p *ConfigParameter) Name() string { return p.name }

// Value returns the cached value.
func (p *ConfigParameter) Value() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.value
}

// Scope returns the configuration file scope the parameter belongs to.
func (p *ConfigParameter) Scope() domain.ConfigFile { return p.file.scope }

// FileName returns the explicit file name for ConfigFileOther.
func (p *ConfigParameter) FileName() string { return p.file.fileName }

// IsDeleted reports whether the parameter was unset or vanished on refresh.
func (p *ConfigParameter) IsDeleted() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.deleted
}

// SetValue writes value through git and then updates the cache.
func (p *ConfigParameter) SetValue(ctx context.Context, value string) error {
	p.file.writeMu.Lock()
	defer p.file.writeMu.Unlock()
	return p.setValue(ctx, value)
}

// Unset removes the parameter through git and then from the cache.
func (p *ConfigParameter) Unset(ctx context.Context) error {
	p.file.writeMu.Lock()
	defer p.file.writeMu.Unlock()
	return p.unset(ctx)
}

// setValue requires the file's write lock.
func (p *ConfigParameter) setValue(ctx context.Context, value string) error {
	if p.IsDeleted() {
		return fmt.Errorf("%w: parameter %s is deleted", domain.ErrInvalidState, p.name)
	}
	if err := p.file.write(ctx, p.name, value); err != nil {
		return err
	}
	p.file.params.Update(p.name, func(c *ConfigParameter) bool { return c.setCachedValue(value) })
	return nil
}

// unset requires the file's write lock.
func (p *ConfigParameter) unset(ctx context.Context) error {
	if p.IsDeleted() {
		return fmt.Errorf("%w: parameter %s is deleted", domain.ErrInvalidState, p.name)
	}
	err := p.file.acc.UnsetConfigValue(ctx, domain.UnsetConfigValueParameters{
		Name:       p.name,
		ConfigFile: p.file.scope,
		FileName:   p.file.fileName,
	})
	if err != nil {
		return err
	}
	p.file.params.Remove(p.name, (*ConfigParameter).markDeleted)
	return nil
}

// Snapshot returns the current field values as a record.
func (p *ConfigParameter) Snapshot() domain.ConfigParameterData {
	return domain.ConfigParameterData{
		Name:       p.name,
		Value:      p.Value(),
		ConfigFile: p.file.scope,
		FileName:   p.file.fileName,
	}
}

func (p *ConfigParameter) setCachedValue(value string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.value == value {
		return false
	}
	p.value = value
	return true
}

func (p *ConfigParameter) markDeleted() {
	p.mu.Lock()
	p.deleted = true
	p.mu.Unlock()
}
