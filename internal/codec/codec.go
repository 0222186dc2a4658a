// Package codec serializes cache configuration snapshots to and from
// BSON blobs. Decoding is restricted to a fixed allow-list of fields
// and BSON types so a corrupted or tampered snapshot file cannot smuggle
// anything else through reconstruction.
package codec

import (
	"fmt"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/vertextoedge/streamcache/internal/domain"
)

const snapshotVersion = int32(1)

// Snapshot is the persisted form of a cache configuration. The file
// path the snapshot lives at and any transient save-debounce state are
// deliberately not part of it.
type Snapshot struct {
	FileName    string
	URL         string
	Fragments   []domain.Fragment
	Samples     []domain.Sample
	ContentInfo *domain.ContentInfo
}

// Encode serializes a snapshot to a BSON blob.
func Encode(s *Snapshot) ([]byte, error) {
	fragments := bson.A{}
	for _, f := range s.Fragments {
		fragments = append(fragments, bson.D{
			{Key: "offset", Value: f.Offset},
			{Key: "length", Value: f.Length},
		})
	}

	samples := bson.A{}
	for _, sm := range s.Samples {
		samples = append(samples, bson.D{
			{Key: "bytes", Value: sm.Bytes},
			{Key: "elapsed", Value: sm.Elapsed},
		})
	}

	doc := bson.D{
		{Key: "version", Value: snapshotVersion},
		{Key: "fileName", Value: s.FileName},
		{Key: "url", Value: s.URL},
		{Key: "fragments", Value: fragments},
		{Key: "downloadInfo", Value: samples},
	}

	if s.ContentInfo != nil {
		doc = append(doc, bson.E{Key: "contentInfo", Value: bson.D{
			{Key: "length", Value: s.ContentInfo.Length},
			{Key: "mimeType", Value: s.ContentInfo.MIMEType},
			{Key: "acceptsRanges", Value: s.ContentInfo.AcceptsRanges},
		}})
	}

	data, err := bson.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	return data, nil
}

// Decode reconstructs a snapshot from a BSON blob. Every field is
// checked against the allow-list before anything is built; an unknown
// field or a field of an unexpected BSON type fails the decode with
// domain.ErrDisallowedType. A missing fragments field is tolerated and
// yields an empty fragment set.
func Decode(data []byte) (*Snapshot, error) {
	raw := bson.Raw(data)
	if err := raw.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrSnapshotCorrupt, err)
	}

	elems, err := raw.Elements()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrSnapshotCorrupt, err)
	}

	s := &Snapshot{}
	for _, el := range elems {
		key := el.Key()
		val := el.Value()

		switch key {
		case "version":
			if _, ok := asInt64(val); !ok {
				return nil, disallowed(key, val)
			}
		case "fileName":
			name, ok := val.StringValueOK()
			if !ok {
				return nil, disallowed(key, val)
			}
			s.FileName = name
		case "url":
			url, ok := val.StringValueOK()
			if !ok {
				return nil, disallowed(key, val)
			}
			s.URL = url
		case "fragments":
			frags, err := decodeFragments(val)
			if err != nil {
				return nil, err
			}
			s.Fragments = frags
		case "downloadInfo":
			samples, err := decodeSamples(val)
			if err != nil {
				return nil, err
			}
			s.Samples = samples
		case "contentInfo":
			info, err := decodeContentInfo(val)
			if err != nil {
				return nil, err
			}
			s.ContentInfo = info
		default:
			return nil, fmt.Errorf("%w: unexpected field %q", domain.ErrDisallowedType, key)
		}
	}

	return s, nil
}

func decodeFragments(val bson.RawValue) ([]domain.Fragment, error) {
	arr, ok := val.ArrayOK()
	if !ok {
		return nil, disallowed("fragments", val)
	}

	vals, err := arr.Values()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrSnapshotCorrupt, err)
	}

	frags := make([]domain.Fragment, 0, len(vals))
	for _, v := range vals {
		doc, ok := v.DocumentOK()
		if !ok {
			return nil, disallowed("fragments element", v)
		}

		var f domain.Fragment
		elems, err := doc.Elements()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrSnapshotCorrupt, err)
		}
		for _, el := range elems {
			n, ok := asInt64(el.Value())
			if !ok {
				return nil, disallowed("fragments."+el.Key(), el.Value())
			}
			switch el.Key() {
			case "offset":
				f.Offset = n
			case "length":
				f.Length = n
			default:
				return nil, fmt.Errorf("%w: unexpected field %q", domain.ErrDisallowedType, "fragments."+el.Key())
			}
		}
		frags = append(frags, f)
	}
	return frags, nil
}

func decodeSamples(val bson.RawValue) ([]domain.Sample, error) {
	arr, ok := val.ArrayOK()
	if !ok {
		return nil, disallowed("downloadInfo", val)
	}

	vals, err := arr.Values()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrSnapshotCorrupt, err)
	}

	samples := make([]domain.Sample, 0, len(vals))
	for _, v := range vals {
		doc, ok := v.DocumentOK()
		if !ok {
			return nil, disallowed("downloadInfo element", v)
		}

		var sm domain.Sample
		elems, err := doc.Elements()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrSnapshotCorrupt, err)
		}
		for _, el := range elems {
			switch el.Key() {
			case "bytes":
				n, ok := asInt64(el.Value())
				if !ok {
					return nil, disallowed("downloadInfo.bytes", el.Value())
				}
				sm.Bytes = n
			case "elapsed":
				f, ok := asFloat64(el.Value())
				if !ok {
					return nil, disallowed("downloadInfo.elapsed", el.Value())
				}
				sm.Elapsed = f
			default:
				return nil, fmt.Errorf("%w: unexpected field %q", domain.ErrDisallowedType, "downloadInfo."+el.Key())
			}
		}
		samples = append(samples, sm)
	}
	return samples, nil
}

func decodeContentInfo(val bson.RawValue) (*domain.ContentInfo, error) {
	doc, ok := val.DocumentOK()
	if !ok {
		return nil, disallowed("contentInfo", val)
	}

	info := &domain.ContentInfo{}
	elems, err := doc.Elements()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrSnapshotCorrupt, err)
	}
	for _, el := range elems {
		switch el.Key() {
		case "length":
			n, ok := asInt64(el.Value())
			if !ok {
				return nil, disallowed("contentInfo.length", el.Value())
			}
			info.Length = n
		case "mimeType":
			mt, ok := el.Value().StringValueOK()
			if !ok {
				return nil, disallowed("contentInfo.mimeType", el.Value())
			}
			info.MIMEType = mt
		case "acceptsRanges":
			b, ok := el.Value().BooleanOK()
			if !ok {
				return nil, disallowed("contentInfo.acceptsRanges", el.Value())
			}
			info.AcceptsRanges = b
		default:
			return nil, fmt.Errorf("%w: unexpected field %q", domain.ErrDisallowedType, "contentInfo."+el.Key())
		}
	}
	return info, nil
}

func asInt64(val bson.RawValue) (int64, bool) {
	switch val.Type {
	case bson.TypeInt32:
		return int64(val.Int32()), true
	case bson.TypeInt64:
		return val.Int64(), true
	default:
		return 0, false
	}
}

func asFloat64(val bson.RawValue) (float64, bool) {
	switch val.Type {
	case bson.TypeDouble:
		return val.Double(), true
	case bson.TypeInt32:
		return float64(val.Int32()), true
	case bson.TypeInt64:
		return float64(val.Int64()), true
	default:
		return 0, false
	}
}

func disallowed(field string, val bson.RawValue) error {
	return fmt.Errorf("%w: field %q has type %s", domain.ErrDisallowedType, field, val.Type)
}
