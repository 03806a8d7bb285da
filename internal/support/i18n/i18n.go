package i18n

import (
	"embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"golang.org/x/text/language"
)

//go:embed locales/*.json
var embeddedLocales embed.FS

// Manager 管理翻译内容。
type Manager struct {
	defaultLang  string
	translations map[string]map[string]string
	matcher      language.Matcher
	tags         []language.Tag
	logger       *slog.Logger
	mu           sync.RWMutex
}

// Option 用于配置 Manager。
type Option func(*Manager)

// WithLogger 设置 Manager 使用的日志实例。
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithDefaultLang 设置默认语言。
func WithDefaultLang(lang string) Option {
	return func(m *Manager) {
		if lang != "" {
			m.defaultLang = lang
		}
	}
}

// NewManager 创建 i18n Manager 并加载内置语言包。
func NewManager(opts ...Option) (*Manager, error) {
	m := &Manager{
		defaultLang:  "en-US",
		translations: make(map[string]map[string]string),
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}

	entries, err := embeddedLocales.ReadDir("locales")
	if err != nil {
		return nil, fmt.Errorf("read embedded locales: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		data, err := embeddedLocales.ReadFile("locales/" + entry.Name())
		if err != nil {
			return nil, fmt.Errorf("read locale %s: %w", entry.Name(), err)
		}
		if err := m.merge(strings.TrimSuffix(entry.Name(), ".json"), data); err != nil {
			return nil, err
		}
	}
	if _, ok := m.translations[m.defaultLang]; !ok {
		return nil, fmt.Errorf("default language %s has no locale file / 默认语言缺少语言包", m.defaultLang)
	}
	m.rebuildMatcher()
	return m, nil
}

// LoadFromDir 从外部目录加载翻译文件，覆盖同名键。
func (m *Manager) LoadFromDir(dir string) error {
	files, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read external locales: %w", err)
	}
	for _, file := range files {
		if file.IsDir() || !strings.HasSuffix(file.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, file.Name()))
		if err != nil {
			m.logger.Warn("failed to read external locale file", "file", file.Name(), "error", err)
			continue
		}
		if err := m.merge(strings.TrimSuffix(file.Name(), ".json"), data); err != nil {
			m.logger.Warn("failed to load external locale file", "file", file.Name(), "error", err)
		}
	}
	m.rebuildMatcher()
	return nil
}

func (m *Manager) merge(lang string, data []byte) error {
	var content map[string]string
	if err := json.Unmarshal(data, &content); err != nil {
		return fmt.Errorf("decode locale %s: %w", lang, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.translations[lang]; !ok {
		m.translations[lang] = make(map[string]string, len(content))
	}
	maps.Copy(m.translations[lang], content)
	return nil
}

func (m *Manager) rebuildMatcher() {
	m.mu.Lock()
	defer m.mu.Unlock()
	// 默认语言排第一，Matcher 在无匹配时返回它
	tags := []language.Tag{language.Make(m.defaultLang)}
	for _, lang := range slices.Sorted(maps.Keys(m.translations)) {
		if lang != m.defaultLang {
			tags = append(tags, language.Make(lang))
		}
	}
	m.tags = tags
	m.matcher = language.NewMatcher(tags)
}

// Match 从候选（query、cookie、Accept-Language 原始值）中选出受支持的语言。
func (m *Manager) Match(candidates ...string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var wanted []language.Tag
	for _, c := range candidates {
		if strings.TrimSpace(c) == "" {
			continue
		}
		tags, _, err := language.ParseAcceptLanguage(c)
		if err != nil {
			continue
		}
		wanted = append(wanted, tags...)
	}
	if len(wanted) == 0 || m.matcher == nil {
		return m.defaultLang
	}
	_, idx, conf := m.matcher.Match(wanted...)
	if conf == language.No {
		return m.defaultLang
	}
	return m.tags[idx].String()
}

// Translate 按语言与键名返回翻译内容，缺失时回退到默认语言，再回退到 key。
func (m *Manager) Translate(lang, key string, args ...any) string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if tag, err := language.Parse(lang); err == nil {
		lang = tag.String()
	}
	for _, candidate := range []string{lang, m.defaultLang} {
		if val, ok := m.translations[candidate][key]; ok {
			if len(args) > 0 {
				return fmt.Sprintf(val, args...)
			}
			return val
		}
	}
	return key
}

// GetSupportedLanguages 返回支持的语言列表。
func (m *Manager) GetSupportedLanguages() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Sorted(maps.Keys(m.translations))
}
