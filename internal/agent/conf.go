package agent

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"strconv"
)

// Band 78 parameter presets. Carrier bandwidth and initial BWP values follow
// the 3GPP tables for 10MHz and 20MHz at 30kHz SCS.
var bandwidthPresets = map[string]map[string]int{
	"10MHz": {
		"dl_carrierBandwidth":              24,
		"ul_carrierBandwidth":              24,
		"initialDLBWPlocationAndBandwidth": 6325,
		"initialULBWPlocationAndBandwidth": 6325,
	},
	"20MHz": {
		"dl_carrierBandwidth":              51,
		"ul_carrierBandwidth":              51,
		"initialDLBWPlocationAndBandwidth": 13750,
		"initialULBWPlocationAndBandwidth": 13750,
	},
}

// FieldChange records one patched configuration parameter.
type FieldChange struct {
	Field string `json:"field"`
	Old   string `json:"old"`
	New   string `json:"new"`
}

// PatchFields rewrites numeric "name = value" assignments in a .conf file.
// Fields are applied in name order so results are deterministic. Returns one
// change per field that was actually present; absent fields are left out.
func PatchFields(path string, fields map[string]string) ([]FieldChange, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read configuration file: %w", err)
	}
	text := string(content)

	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	var changes []FieldChange
	for _, name := range names {
		value := fields[name]

		curRe, err := regexp.Compile(regexp.QuoteMeta(name) + `\s*=\s*(-?\d+(?:\.\d+)?)`)
		if err != nil {
			return nil, err
		}
		old := ""
		if m := curRe.FindStringSubmatch(text); m != nil {
			old = m[1]
		}

		subRe, err := regexp.Compile(`(` + regexp.QuoteMeta(name) + `\s*=\s*)-?\d+(?:\.\d+)?`)
		if err != nil {
			return nil, err
		}
		replaced := 0
		text = subRe.ReplaceAllStringFunc(text, func(m string) string {
			replaced++
			// Concatenate the new value literally; a value containing "$" must
			// never be expanded as a replacement template.
			sub := subRe.FindStringSubmatch(m)
			return sub[1] + value
		})
		if replaced > 0 {
			changes = append(changes, FieldChange{Field: name, Old: old, New: value})
		}
	}

	if len(changes) > 0 {
		if err := os.WriteFile(path, []byte(text), 0644); err != nil {
			return nil, fmt.Errorf("write configuration file: %w", err)
		}
	}
	return changes, nil
}

// UpdateMCS sets the downlink and uplink MCS parameters in the .conf file at
// path. The same index is applied to the min and max of each direction. Valid
// MCS indices are 0 through 28.
func UpdateMCS(path string, dlMCS, ulMCS int) ([]FieldChange, error) {
	if dlMCS < 0 || dlMCS > 28 {
		return nil, fmt.Errorf("invalid dl_mcs value %d: must be between 0 and 28", dlMCS)
	}
	if ulMCS < 0 || ulMCS > 28 {
		return nil, fmt.Errorf("invalid ul_mcs value %d: must be between 0 and 28", ulMCS)
	}
	return PatchFields(path, map[string]string{
		"dl_min_mcs": strconv.Itoa(dlMCS),
		"dl_max_mcs": strconv.Itoa(dlMCS),
		"ul_min_mcs": strconv.Itoa(ulMCS),
		"ul_max_mcs": strconv.Itoa(ulMCS),
	})
}

// UpdateBandwidth applies the Band 78 preset for bandwidth ("10MHz" or
// "20MHz") to the .conf file at path.
func UpdateBandwidth(path, bandwidth string) ([]FieldChange, error) {
	preset, ok := bandwidthPresets[bandwidth]
	if !ok {
		return nil, fmt.Errorf("invalid bandwidth %q: must be \"10MHz\" or \"20MHz\"", bandwidth)
	}
	fields := make(map[string]string, len(preset))
	for name, value := range preset {
		fields[name] = strconv.Itoa(value)
	}
	return PatchFields(path, fields)
}
