package services

import (
	"path"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/domain/training"
)

const (
	cfgMaxLength         = "maxlength"
	cfgRows              = "rows"
	cfgPlaceholder       = "placeholder"
	cfgOptions           = "options"
	cfgOptionPrefix      = "option"
	cfgAcceptedFileTypes = "acceptedfiletypes"
	cfgMaxFiles          = "maxfiles"

	dateLayout = "2006-01-02"
)

// checkConfigs validates the config map of one item type. The returned map
// is keyed by config name and is empty when everything is valid.
func checkConfigs(typ training.ItemType, cfg map[string]string) map[string]string {
	bad := map[string]string{}
	positive := func(name string) {
		v, ok := cfg[name]
		if !ok || strings.TrimSpace(v) == "" {
			return
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil || n <= 0 {
			bad[name] = name + " must be a positive whole number"
		}
	}
	for name := range cfg {
		if !configAllowed(typ, name) {
			bad[name] = "Unknown setting for " + string(typ)
		}
	}
	switch typ {
	case training.ItemTypeTextInput:
		positive(cfgMaxLength)
		positive(cfgRows)
	case training.ItemTypeSelectMenu:
		if len(selectOptions(cfg)) == 0 {
			bad[cfgOptions] = "Add at least one option"
		}
	case training.ItemTypeFileUpload:
		positive(cfgMaxFiles)
	}
	return bad
}

func configAllowed(typ training.ItemType, name string) bool {
	switch typ {
	case training.ItemTypeTextInput:
		return name == cfgMaxLength || name == cfgRows || name == cfgPlaceholder
	case training.ItemTypeSelectMenu:
		return strings.HasPrefix(name, cfgOptionPrefix)
	case training.ItemTypeFileUpload:
		return name == cfgAcceptedFileTypes || name == cfgMaxFiles
	default:
		return false
	}
}

// selectOptions reads "options" as a comma separated list, falling back to
// option1..optionN keys in key order.
func selectOptions(cfg map[string]string) []string {
	out := []string{}
	if raw, ok := cfg[cfgOptions]; ok {
		for _, o := range strings.Split(raw, ",") {
			if o = strings.TrimSpace(o); o != "" {
				out = append(out, o)
			}
		}
		return out
	}
	keys := []string{}
	for k := range cfg {
		if strings.HasPrefix(k, cfgOptionPrefix) && k != cfgOptions {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		ni, ei := strconv.Atoi(strings.TrimPrefix(keys[i], cfgOptionPrefix))
		nj, ej := strconv.Atoi(strings.TrimPrefix(keys[j], cfgOptionPrefix))
		if ei == nil && ej == nil && ni != nj {
			return ni < nj
		}
		return keys[i] < keys[j]
	})
	for _, k := range keys {
		if o := strings.TrimSpace(cfg[k]); o != "" {
			out = append(out, o)
		}
	}
	return out
}

func configInt(cfg map[string]string, name string) int {
	n, err := strconv.Atoi(strings.TrimSpace(cfg[name]))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// normaliseResponse turns a submitted value into the stored response text
// and its completed flag. fileupload responses are derived from the file
// area and never pass through here.
func normaliseResponse(typ training.ItemType, cfg map[string]string, raw string) (string, bool, string) {
	switch typ {
	case training.ItemTypeTextInput:
		v := strings.TrimSpace(raw)
		if max := configInt(cfg, cfgMaxLength); max > 0 && len([]rune(v)) > max {
			return "", false, "Response must be at most " + strconv.Itoa(max) + " characters"
		}
		return v, v != "", ""
	case training.ItemTypeSelectMenu:
		v := strings.TrimSpace(raw)
		if v == "" {
			return "", false, ""
		}
		for _, o := range selectOptions(cfg) {
			if o == v {
				return v, true, ""
			}
		}
		return "", false, "Choose one of the listed options"
	case training.ItemTypeDatePicker:
		v := strings.TrimSpace(raw)
		if v == "" {
			return "", false, ""
		}
		if t, err := time.Parse(dateLayout, v); err == nil {
			return strconv.FormatInt(t.Unix(), 10), true, ""
		}
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			return strconv.FormatInt(n, 10), true, ""
		}
		return "", false, "Enter a date as YYYY-MM-DD"
	case training.ItemTypeFileUpload:
		return "", false, "Upload files instead of sending a value"
	default:
		return "", false, "Unknown item type"
	}
}

// acceptedExtensions parses ".pdf, docx" style lists into lower-case
// extensions with a leading dot. Empty means anything goes.
func acceptedExtensions(cfg map[string]string) []string {
	out := []string{}
	for _, e := range strings.Split(cfg[cfgAcceptedFileTypes], ",") {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" || e == "*" {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		out = append(out, e)
	}
	return out
}

func fileTypeAccepted(cfg map[string]string, name string) bool {
	exts := acceptedExtensions(cfg)
	if len(exts) == 0 {
		return true
	}
	ext := strings.ToLower(path.Ext(name))
	for _, e := range exts {
		if e == ext {
			return true
		}
	}
	return false
}
