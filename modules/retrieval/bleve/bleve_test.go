package bleve

import (
	"context"
	"path/filepath"
	"slices"
	"testing"

	"github.com/flemzord/ragraft/internal/core"
	"github.com/flemzord/ragraft/internal/retrieval"
)

func newTestModule(t *testing.T) *Module {
	t.Helper()
	m := &Module{config: Config{InMemory: true}}
	if err := m.Provision(core.NewAppContext(nil, t.TempDir())); err != nil {
		t.Fatalf("Provision() error: %v", err)
	}
	t.Cleanup(func() { _ = m.Stop(context.Background()) })
	return m
}

func ingest(t *testing.T, m *Module, tenant, tag, content string) {
	t.Helper()
	if err := m.Ingest(context.Background(), retrieval.Document{TenantID: tenant, Tag: tag, Content: content}); err != nil {
		t.Fatalf("Ingest() error: %v", err)
	}
}

func TestSearch_ScopedByTenantAndTag(t *testing.T) {
	m := newTestModule(t)
	ingest(t, m, "t1", "billing", "Refunds are processed within five days.")
	ingest(t, m, "t1", "shipping", "Refunds for shipping fees are not available.")
	ingest(t, m, "t2", "billing", "Refunds never happen here.")

	got, err := m.Search(context.Background(), retrieval.Query{TenantID: "t1", Text: "refunds", Tags: []string{"billing"}})
	if err != nil {
		t.Fatalf("Search() error: %v", err)
	}
	if !slices.Equal(got, []string{"Refunds are processed within five days."}) {
		t.Errorf("Search() = %q", got)
	}

	got, err = m.Search(context.Background(), retrieval.Query{TenantID: "t1", Text: "refunds", Tags: []string{"billing", "shipping"}})
	if err != nil {
		t.Fatalf("Search() error: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("Search() over two tags = %q, want 2 chunks", got)
	}
}

func TestSearch_LimitAndDefaultTag(t *testing.T) {
	m := newTestModule(t)
	for range 4 {
		ingest(t, m, "t1", "", "opening hours are nine to five")
	}

	got, err := m.Search(context.Background(), retrieval.Query{TenantID: "t1", Text: "hours", Limit: 3})
	if err != nil {
		t.Fatalf("Search() error: %v", err)
	}
	if len(got) != 3 {
		t.Errorf("len = %d, want 3", len(got))
	}
}

func TestSearch_EmptyText(t *testing.T) {
	m := newTestModule(t)
	got, err := m.Search(context.Background(), retrieval.Query{TenantID: "t1", Text: "  "})
	if err != nil || len(got) != 0 {
		t.Errorf("Search() = %q, %v; want no chunks", got, err)
	}
}

func TestDeleteTag(t *testing.T) {
	m := newTestModule(t)
	ingest(t, m, "t1", "faq", "parking is free")
	ingest(t, m, "t1", "other", "parking costs extra on sundays")
	ingest(t, m, "t2", "faq", "parking is paid")

	if err := m.DeleteTag(context.Background(), "t1", "", "faq"); err != nil {
		t.Fatalf("DeleteTag() error: %v", err)
	}

	got, _ := m.Search(context.Background(), retrieval.Query{TenantID: "t1", Text: "parking", Tags: []string{"faq"}})
	if len(got) != 0 {
		t.Errorf("deleted tag still searchable: %q", got)
	}
	got, _ = m.Search(context.Background(), retrieval.Query{TenantID: "t1", Text: "parking", Tags: []string{"other"}})
	if len(got) != 1 {
		t.Errorf("other tag affected: %q", got)
	}
	got, _ = m.Search(context.Background(), retrieval.Query{TenantID: "t2", Text: "parking", Tags: []string{"faq"}})
	if len(got) != 1 {
		t.Errorf("other tenant affected: %q", got)
	}
}

func TestIngest_RequiresTenant(t *testing.T) {
	m := newTestModule(t)
	if err := m.Ingest(context.Background(), retrieval.Document{Content: "x"}); err == nil {
		t.Error("expected error without tenant id")
	}
}

func TestProvision_OnDiskReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "idx", "knowledge.bleve")

	m := &Module{config: Config{Path: path}}
	if err := m.Provision(core.NewAppContext(nil, dir)); err != nil {
		t.Fatalf("Provision() error: %v", err)
	}
	ingest(t, m, "t1", "faq", "the cafeteria opens at noon")
	if err := m.Stop(context.Background()); err != nil {
		t.Fatalf("Stop() error: %v", err)
	}

	reopened := &Module{config: Config{Path: path}}
	if err := reopened.Provision(core.NewAppContext(nil, dir)); err != nil {
		t.Fatalf("reopen Provision() error: %v", err)
	}
	t.Cleanup(func() { _ = reopened.Stop(context.Background()) })

	got, err := reopened.Search(context.Background(), retrieval.Query{TenantID: "t1", Text: "cafeteria", Tags: []string{"faq"}})
	if err != nil || len(got) != 1 {
		t.Errorf("Search() after reopen = %q, %v", got, err)
	}
	if reopened.RequiresCredential() {
		t.Error("bleve backend must not require a credential")
	}
}
