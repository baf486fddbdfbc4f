// 文件路径: internal/support/i18n/i18n.go
// 模块说明: 订阅信息节点、状态响应头与接口错误文案的多语言翻译。
package i18n

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
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
	tags         []string
	logger       *slog.Logger
	mu           sync.RWMutex
}

// Option 用于配置 Manager。
type Option func(*Manager)

// WithLogger 设置 Manager 使用的日志实例。
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithDefaultLang 设置默认语言。
func WithDefaultLang(lang string) Option {
	return func(m *Manager) {
		if strings.TrimSpace(lang) != "" {
			m.defaultLang = normalize(lang)
		}
	}
}

// NewManager 创建 i18n Manager 并加载内置语言包。
func NewManager(opts ...Option) (*Manager, error) {
	m := &Manager{
		defaultLang:  "zh-CN",
		translations: make(map[string]map[string]string),
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}

	sub, err := fs.Sub(embeddedLocales, "locales")
	if err != nil {
		return nil, fmt.Errorf("open embedded locales: %w", err)
	}
	if err := m.load(sub, true); err != nil {
		return nil, err
	}
	return m, nil
}

// LoadFromDir 从外部目录加载翻译文件，覆盖同名键。目录不存在时忽略。
func (m *Manager) LoadFromDir(dir string) error {
	if strings.TrimSpace(dir) == "" {
		return nil
	}
	if _, err := os.Stat(dir); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("stat locales dir: %w", err)
	}
	return m.load(os.DirFS(filepath.Clean(dir)), false)
}

// strict 为 true 时任何文件错误都直接返回；否则记录告警并跳过。
func (m *Manager) load(fsys fs.FS, strict bool) error {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("read locales: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		content, err := readLocale(fsys, entry.Name())
		if err != nil {
			if strict {
				return err
			}
			m.logger.Warn("skip locale file", "file", entry.Name(), "error", err)
			continue
		}
		m.merge(normalize(strings.TrimSuffix(entry.Name(), ".json")), content)
	}
	m.rebuildMatcher()
	return nil
}

func readLocale(fsys fs.FS, name string) (map[string]string, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, fmt.Errorf("read locale %s: %w", name, err)
	}
	var content map[string]string
	if err := json.Unmarshal(data, &content); err != nil {
		return nil, fmt.Errorf("decode locale %s: %w", name, err)
	}
	return content, nil
}

func (m *Manager) merge(lang string, content map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	table, ok := m.translations[lang]
	if !ok {
		table = make(map[string]string, len(content))
		m.translations[lang] = table
	}
	for k, v := range content {
		table[k] = v
	}
}

func (m *Manager) rebuildMatcher() {
	m.mu.Lock()
	defer m.mu.Unlock()
	langs := make([]string, 0, len(m.translations))
	for lang := range m.translations {
		if lang != m.defaultLang {
			langs = append(langs, lang)
		}
	}
	sort.Strings(langs)
	// 默认语言放在首位，Matcher 无法匹配时回退到它。
	langs = append([]string{m.defaultLang}, langs...)
	tags := make([]language.Tag, 0, len(langs))
	for _, lang := range langs {
		tags = append(tags, language.Make(lang))
	}
	m.tags = langs
	m.matcher = language.NewMatcher(tags)
}

// Translate 按语言与键名返回翻译内容，找不到时依次回退到默认语言和 key 本身。
func (m *Manager) Translate(lang, key string, args ...any) string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, candidate := range []string{normalize(lang), m.defaultLang} {
		if val, ok := m.translations[candidate][key]; ok {
			if len(args) > 0 {
				return fmt.Sprintf(val, args...)
			}
			return val
		}
	}
	return key
}

// Match 根据 Accept-Language 头选出最合适的已加载语言。
func (m *Manager) Match(acceptLanguage string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.matcher == nil || strings.TrimSpace(acceptLanguage) == "" {
		return m.defaultLang
	}
	prefs, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(prefs) == 0 {
		return m.defaultLang
	}
	_, index, confidence := m.matcher.Match(prefs...)
	if confidence == language.No || index >= len(m.tags) {
		return m.defaultLang
	}
	return m.tags[index]
}

// DefaultLang 返回默认语言。
func (m *Manager) DefaultLang() string {
	return m.defaultLang
}

func normalize(lang string) string {
	tag, err := language.Parse(strings.TrimSpace(lang))
	if err != nil {
		return lang
	}
	return tag.String()
}
