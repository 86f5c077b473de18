package natsadapter

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/samirrijal/isoview/internal/core/domain"
)

type published struct {
	subject string
	data    []byte
}

type fakeConn struct {
	msgs []published
	err  error
}

func (f *fakeConn) Publish(subject string, data []byte) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, published{subject, data})
	return nil
}

func TestMapPublisher_SetSourceData(t *testing.T) {
	fc := &fakeConn{}
	p := newMapPublisher(fc)
	p.now = func() time.Time { return time.Date(2024, 5, 6, 8, 0, 0, 0, time.UTC) }

	data := domain.NewFeatureCollection()
	data.Features = append(data.Features, domain.Feature{Type: "Feature", Properties: map[string]any{"time": 900.0}})

	if err := p.SetSourceData(context.Background(), "isochrones", data); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(fc.msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(fc.msgs))
	}
	if fc.msgs[0].subject != "isoview.map.set_source_data" {
		t.Errorf("unexpected subject %s", fc.msgs[0].subject)
	}

	var ev domain.MapEvent
	if err := json.Unmarshal(fc.msgs[0].data, &ev); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ev.SourceID != "isochrones" || ev.Data == nil || len(ev.Data.Features) != 1 {
		t.Errorf("unexpected event: %+v", ev)
	}
}

func TestMapPublisher_Commands(t *testing.T) {
	fc := &fakeConn{}
	p := newMapPublisher(fc)
	ctx := context.Background()
	c := domain.Coordinate{Lng: -2.9, Lat: 43.2}

	_ = p.Create(ctx, domain.MapSetup{Zoom: 11})
	_ = p.SetMarker(ctx, c)
	_ = p.FlyTo(ctx, c)
	_ = p.FocusSearch(ctx)
	_ = p.Dispose(ctx)

	want := []string{
		"isoview.map.create",
		"isoview.map.set_marker",
		"isoview.map.fly_to",
		"isoview.map.focus_search",
		"isoview.map.dispose",
	}
	if len(fc.msgs) != len(want) {
		t.Fatalf("expected %d messages, got %d", len(want), len(fc.msgs))
	}
	for i, w := range want {
		if fc.msgs[i].subject != w {
			t.Errorf("message %d: expected %s, got %s", i, w, fc.msgs[i].subject)
		}
	}
}

func TestMapPublisher_PublishError(t *testing.T) {
	p := newMapPublisher(&fakeConn{err: errors.New("nats: connection closed")})
	if err := p.FocusSearch(context.Background()); err == nil {
		t.Error("expected publish error")
	}
}

func TestDecodeLocation(t *testing.T) {
	c, err := decodeLocation([]byte(`{"lng":-2.935,"lat":43.263}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Lng != -2.935 || c.Lat != 43.263 {
		t.Errorf("unexpected coordinate %+v", c)
	}

	if _, err := decodeLocation([]byte(`{"lng":500,"lat":0}`)); err == nil {
		t.Error("expected range error")
	}
	if _, err := decodeLocation([]byte(`nope`)); err == nil {
		t.Error("expected decode error")
	}
}
