package contracts

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"operator-dashboard/src/operator"
)

// Fixed field names of a persisted test entry.
const (
	FieldTestStatus   = "test_status"
	FieldProwJobURL   = "prow_job_url"
	FieldJobTimestamp = "job_timestamp"
)

// Codec reads and writes the dashboard JSON document. Version field names are
// product specific and come from the operator configuration.
type Codec struct {
	PlatformField  string
	ComponentField string
}

// NewCodec returns the codec for an operator.
func NewCodec(op operator.Config) Codec {
	return Codec{
		PlatformField:  op.PlatformVersionField,
		ComponentField: op.VersionField,
	}
}

// historyKeys are the bucket keys the dashboard reads. Any other key is
// carried in Extra.
var historyKeys = []string{"notes", "bundle_tests", "release_tests", "job_history_links"}

type historyDocument struct {
	Notes           []string                   `json:"notes"`
	BundleTests     []json.RawMessage          `json:"bundle_tests"`
	ReleaseTests    []json.RawMessage          `json:"release_tests"`
	JobHistoryLinks []string                   `json:"job_history_links"`
	Extra           map[string]json.RawMessage `json:"-"`
}

// MarshalJSON writes the known keys in their fixed order followed by the
// extra keys sorted by name.
func (hd historyDocument) MarshalJSON() ([]byte, error) {
	type plain historyDocument
	base, err := json.Marshal(plain(hd))
	if err != nil || len(hd.Extra) == 0 {
		return base, err
	}

	keys := make([]string, 0, len(hd.Extra))
	for k := range hd.Extra {
		if !isHistoryKey(k) {
			keys = append(keys, k)
		}
	}
	sortStrings(keys)

	var buf bytes.Buffer
	buf.Write(base[:len(base)-1])
	for _, k := range keys {
		name, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.WriteByte(',')
		buf.Write(name)
		buf.WriteByte(':')
		if err := json.Compact(&buf, hd.Extra[k]); err != nil {
			return nil, fmt.Errorf("extra key %s: %w", k, err)
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (hd *historyDocument) UnmarshalJSON(data []byte) error {
	type plain historyDocument
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}
	for _, k := range historyKeys {
		delete(all, k)
	}
	if len(all) > 0 {
		p.Extra = all
	}
	*hd = historyDocument(p)
	return nil
}

func isHistoryKey(k string) bool {
	for _, known := range historyKeys {
		if k == known {
			return true
		}
	}
	return false
}

// Marshal encodes the dashboard with 4-space indentation and buckets sorted.
func (c Codec) Marshal(d Dashboard) ([]byte, error) {
	doc := make(map[string]historyDocument, len(d))
	for bucket, h := range d {
		hd, err := c.encodeHistory(h)
		if err != nil {
			return nil, fmt.Errorf("bucket %s: %w", bucket, err)
		}
		doc[bucket] = hd
	}
	return json.MarshalIndent(doc, "", "    ")
}

// MarshalHistory encodes a single bucket's history.
func (c Codec) MarshalHistory(h VersionHistory) ([]byte, error) {
	hd, err := c.encodeHistory(h)
	if err != nil {
		return nil, err
	}
	return json.Marshal(hd)
}

// Unmarshal decodes a dashboard document. Missing lists decode as empty.
func (c Codec) Unmarshal(data []byte) (Dashboard, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode dashboard: %w", err)
	}
	d := make(Dashboard, len(doc))
	for bucket, raw := range doc {
		h, err := c.UnmarshalHistory(raw)
		if err != nil {
			return nil, fmt.Errorf("bucket %s: %w", bucket, err)
		}
		d[bucket] = h
	}
	return d, nil
}

// UnmarshalHistory decodes a single bucket's history.
func (c Codec) UnmarshalHistory(data []byte) (VersionHistory, error) {
	var hd historyDocument
	if err := json.Unmarshal(data, &hd); err != nil {
		return VersionHistory{}, fmt.Errorf("failed to decode version history: %w", err)
	}
	bundle, err := c.decodeEntries(hd.BundleTests)
	if err != nil {
		return VersionHistory{}, fmt.Errorf("bundle_tests: %w", err)
	}
	release, err := c.decodeEntries(hd.ReleaseTests)
	if err != nil {
		return VersionHistory{}, fmt.Errorf("release_tests: %w", err)
	}
	return VersionHistory{
		Notes:           nonNil(hd.Notes),
		BundleTests:     bundle,
		ReleaseTests:    release,
		JobHistoryLinks: nonNil(hd.JobHistoryLinks),
		Extra:           hd.Extra,
	}, nil
}

func (c Codec) encodeHistory(h VersionHistory) (historyDocument, error) {
	bundle, err := c.encodeEntries(h.BundleTests)
	if err != nil {
		return historyDocument{}, err
	}
	release, err := c.encodeEntries(h.ReleaseTests)
	if err != nil {
		return historyDocument{}, err
	}
	return historyDocument{
		Notes:           nonNil(h.Notes),
		BundleTests:     bundle,
		ReleaseTests:    release,
		JobHistoryLinks: nonNil(h.JobHistoryLinks),
		Extra:           h.Extra,
	}, nil
}

func (c Codec) encodeEntries(results []TestResult) ([]json.RawMessage, error) {
	out := make([]json.RawMessage, 0, len(results))
	for _, r := range results {
		raw, err := c.EncodeResult(r)
		if err != nil {
			return nil, err
		}
		out = append(out, raw)
	}
	return out, nil
}

// EncodeResult writes one flat test entry, keeping the field order of the
// persisted format.
func (c Codec) EncodeResult(r TestResult) (json.RawMessage, error) {
	fields := [][2]string{
		{c.PlatformField, r.PlatformVersion},
		{c.ComponentField, r.ComponentVersion},
		{FieldTestStatus, string(r.Status)},
		{FieldProwJobURL, r.ReportURL},
		{FieldJobTimestamp, strconv.FormatInt(r.Timestamp, 10)},
	}

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(f[0])
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(f[1])
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (c Codec) decodeEntries(raws []json.RawMessage) ([]TestResult, error) {
	out := make([]TestResult, 0, len(raws))
	for i, raw := range raws {
		r, err := c.DecodeResult(raw)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		out = append(out, r)
	}
	return out, nil
}

// DecodeResult reads one flat test entry. job_timestamp may be a string or a
// number.
func (c Codec) DecodeResult(raw []byte) (TestResult, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return TestResult{}, fmt.Errorf("failed to decode test entry: %w", err)
	}

	ts, err := parseTimestamp(m[FieldJobTimestamp])
	if err != nil {
		return TestResult{}, err
	}

	return TestResult{
		PlatformVersion:  stringField(m, c.PlatformField),
		ComponentVersion: stringField(m, c.ComponentField),
		Status:           Status(stringField(m, FieldTestStatus)),
		ReportURL:        stringField(m, FieldProwJobURL),
		Timestamp:        ts,
	}, nil
}

func stringField(m map[string]any, key string) string {
	switch v := m[key].(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	default:
		return ""
	}
}

func parseTimestamp(v any) (int64, error) {
	switch t := v.(type) {
	case nil:
		return 0, nil
	case json.Number:
		return t.Int64()
	case string:
		if t == "" {
			return 0, nil
		}
		ts, err := strconv.ParseInt(t, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid %s %q: %w", FieldJobTimestamp, t, err)
		}
		return ts, nil
	default:
		return 0, fmt.Errorf("invalid %s type %T", FieldJobTimestamp, v)
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func sortStrings(s []string) { sort.Strings(s) }
