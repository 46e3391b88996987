package extract

import (
	"sync"
	"testing"

	"github.com/huangsam/testhub/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ann(name string, args map[string][]string) schema.Annotation {
	return schema.Annotation{Name: name, Args: args}
}

func tags(values ...string) schema.Annotation {
	nested := make([]schema.Annotation, 0, len(values))
	for _, v := range values {
		nested = append(nested, ann(TagAnnotation, map[string][]string{"value": {v}}))
	}
	return schema.Annotation{
		Name:   TagsAnnotation,
		Args:   map[string][]string{"value": {}},
		Nested: map[string][]schema.Annotation{"value": nested},
	}
}

func TestRegistry_ExtractAll(t *testing.T) {
	r := NewDefaultRegistry()

	tests := []struct {
		name        string
		annotations []schema.Annotation
		want        []string
	}{
		{
			name: "rich id list wins over tags",
			annotations: []schema.Annotation{
				ann(RichAnnotation, map[string][]string{"testCaseIds": {"TC-1", "TC-2"}, "tags": {"TC-9"}}),
			},
			want: []string{"TC-1", "TC-2"},
		},
		{
			name: "rich falls back to tag tokens",
			annotations: []schema.Annotation{
				ann(RichAnnotation, map[string][]string{"testCaseIds": {}, "tags": {"smoke, TC-7;TC-8", "regression", "ab-cd"}}),
			},
			want: []string{"TC-7", "TC-8"},
		},
		{
			name: "explicitly empty id list falls back to tags",
			annotations: []schema.Annotation{
				ann(RichAnnotation, map[string][]string{"testCaseIds": {}, "tags": {"TC-11"}}),
			},
			want: []string{"TC-11"},
		},
		{
			name: "blank ids count as empty",
			annotations: []schema.Annotation{
				ann(RichAnnotation, map[string][]string{"testCaseIds": {" ", ""}, "tags": {"TC-12"}}),
			},
			want: []string{"TC-12"},
		},
		{
			name: "rich without ids or tags",
			annotations: []schema.Annotation{
				ann(RichAnnotation, map[string][]string{"title": {"Login"}}),
			},
			want: []string{},
		},
		{
			name: "lightweight only",
			annotations: []schema.Annotation{
				ann(IDAnnotation, map[string][]string{"value": {"TC-3", "TC-4"}}),
			},
			want: []string{"TC-3", "TC-4"},
		},
		{
			name: "lightweight and tag for the same id",
			annotations: []schema.Annotation{
				ann(IDAnnotation, map[string][]string{"value": {"TC-5"}}),
				ann(TagAnnotation, map[string][]string{"value": {"TC-5"}}),
			},
			want: []string{"TC-5"},
		},
		{
			name: "tags filtered by pattern",
			annotations: []schema.Annotation{
				tags("smoke", "ORD-42", "T-1", "ABC-", "x1-2"),
			},
			want: []string{"ORD-42"},
		},
		{
			name: "priority order across annotations",
			annotations: []schema.Annotation{
				ann(TagAnnotation, map[string][]string{"value": {"TG-1"}}),
				ann(IDAnnotation, map[string][]string{"value": {"ID-1"}}),
				ann(RichAnnotation, map[string][]string{"testCaseIds": {"RC-1"}}),
			},
			want: []string{"RC-1", "ID-1", "TG-1"},
		},
		{
			name: "unrelated annotations",
			annotations: []schema.Annotation{
				ann("Test", nil),
				ann("DisplayName", map[string][]string{"value": {"TC-1"}}),
			},
			want: []string{},
		},
		{
			name:        "no annotations",
			annotations: nil,
			want:        []string{},
		},
		{
			name: "delimiter and blanks are cleaned",
			annotations: []schema.Annotation{
				ann(IDAnnotation, map[string][]string{"value": {" TC-1 ", "", "TC-" + schema.ListDelimiter + "2"}}),
			},
			want: []string{"TC-1", "TC-2"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.ExtractAll(tt.annotations)
			require.NotNil(t, got)
			assert.Equal(t, tt.want, got)
		})
	}
}

type fakeExtractor struct {
	name     string
	priority int
}

func (f fakeExtractor) Name() string                    { return f.name }
func (f fakeExtractor) Priority() int                   { return f.priority }
func (f fakeExtractor) Supports(schema.Annotation) bool { return true }
func (f fakeExtractor) Extract(schema.Annotation) []string {
	return []string{f.name + "-1"}
}

func names(es []Extractor) []string {
	out := make([]string, 0, len(es))
	for _, e := range es {
		out = append(out, e.Name())
	}
	return out
}

func TestRegistry_RegisterResorts(t *testing.T) {
	r := NewDefaultRegistry()
	assert.Equal(t, []string{"rich", "id", "tag"}, names(r.Extractors()))

	r.Register(fakeExtractor{name: "top", priority: 1000})
	r.Register(fakeExtractor{name: "mid", priority: IDPriority})
	r.Register(fakeExtractor{name: "low", priority: 0})
	assert.Equal(t, []string{"top", "rich", "id", "mid", "tag", "low"}, names(r.Extractors()))

	got := r.ExtractAll([]schema.Annotation{ann("Anything", nil)})
	assert.Equal(t, []string{"top-1", "mid-1", "low-1"}, got)
}

func TestRegistry_Isolated(t *testing.T) {
	a := NewDefaultRegistry()
	b := NewDefaultRegistry()
	a.Register(fakeExtractor{name: "extra", priority: 1})
	assert.Len(t, a.Extractors(), 4)
	assert.Len(t, b.Extractors(), 3)
	assert.Empty(t, NewRegistry().ExtractAll([]schema.Annotation{ann(IDAnnotation, map[string][]string{"value": {"TC-1"}})}))
}

func TestRegistry_ConcurrentUse(t *testing.T) {
	r := NewDefaultRegistry()
	anns := []schema.Annotation{ann(IDAnnotation, map[string][]string{"value": {"TC-1"}})}

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			r.Register(fakeExtractor{name: "x", priority: i})
		}()
		go func() {
			defer wg.Done()
			assert.Contains(t, r.ExtractAll(anns), "TC-1")
		}()
	}
	wg.Wait()
	assert.Len(t, r.Extractors(), 11)
}

func TestDecodeMetadata(t *testing.T) {
	anns := []schema.Annotation{
		ann("Test", nil),
		ann(RichAnnotation, map[string][]string{
			"title":       {"Create order"},
			"author":      {" alice "},
			"tags":        {"smoke", "TC-1"},
			"testCaseIds": {"TC-1"},
			"description": {"line one", "line two"},
		}),
	}
	got := DecodeMetadata(anns, "create(String)")
	require.NotNil(t, got)
	assert.Equal(t, "Create order", got.Title)
	assert.Equal(t, "alice", got.Author)
	assert.Equal(t, schema.DefaultAnnotationStatus, got.Status)
	assert.Equal(t, "line one line two", got.Description)
	assert.Equal(t, []string{"smoke", "TC-1"}, got.Tags)
	assert.Equal(t, []string{"TC-1"}, got.TestCaseIDs)
	assert.Equal(t, "create(String)", got.MethodSignature)
	for _, arr := range [][]string{got.TestPoints, got.RelatedRequirements, got.RelatedDefects, got.RelatedTestcases} {
		assert.NotNil(t, arr)
		assert.Empty(t, arr)
	}

	withStatus := DecodeMetadata([]schema.Annotation{ann(RichAnnotation, map[string][]string{"status": {"DONE"}})}, "m()")
	assert.Equal(t, "DONE", withStatus.Status)

	assert.Nil(t, DecodeMetadata([]schema.Annotation{ann(IDAnnotation, nil)}, "m()"))
	assert.Nil(t, DecodeMetadata(nil, "m()"))
}
