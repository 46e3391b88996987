package extract

import "github.com/huangsam/testhub/schema"

// Annotation names of the built-in dialects.
const (
	RichAnnotation = "TestCaseInfo"
	IDAnnotation   = "TestCaseId"
	TagAnnotation  = "Tag"
	TagsAnnotation = "Tags"
)

// Built-in priorities.
const (
	RichPriority = 300
	IDPriority   = 200
	TagPriority  = 100
)

// RichExtractor reads @TestCaseInfo. Its testCaseIds attribute wins outright;
// only when it is empty are identifier tokens taken from tags.
type RichExtractor struct{}

func (RichExtractor) Name() string  { return "rich" }
func (RichExtractor) Priority() int { return RichPriority }

func (RichExtractor) Supports(a schema.Annotation) bool {
	return a.Name == RichAnnotation
}

func (RichExtractor) Extract(a schema.Annotation) []string {
	if ids := schema.CleanTokens(a.Values("testCaseIds")); len(ids) > 0 {
		return ids
	}
	return idsIn(a.Values("tags"))
}

// IDExtractor reads @TestCaseId("TC-1") and @TestCaseId({"TC-1", "TC-2"}).
type IDExtractor struct{}

func (IDExtractor) Name() string  { return "id" }
func (IDExtractor) Priority() int { return IDPriority }

func (IDExtractor) Supports(a schema.Annotation) bool {
	return a.Name == IDAnnotation
}

func (IDExtractor) Extract(a schema.Annotation) []string {
	return schema.CleanTokens(a.Values("value"))
}

// TagExtractor reads @Tag and @Tags, keeping only values shaped like identifiers.
type TagExtractor struct{}

func (TagExtractor) Name() string  { return "tag" }
func (TagExtractor) Priority() int { return TagPriority }

func (TagExtractor) Supports(a schema.Annotation) bool {
	return a.Name == TagAnnotation || a.Name == TagsAnnotation
}

func (TagExtractor) Extract(a schema.Annotation) []string {
	var values []string
	if a.Name == TagsAnnotation {
		for _, nested := range a.Nested["value"] {
			if nested.Name == TagAnnotation {
				values = append(values, nested.Values("value")...)
			}
		}
	} else {
		values = a.Values("value")
	}

	var ids []string
	for _, v := range schema.CleanTokens(values) {
		if IDPattern.MatchString(v) {
			ids = append(ids, v)
		}
	}
	return ids
}
