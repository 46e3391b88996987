package extract

import (
	"strings"

	"github.com/huangsam/testhub/schema"
)

// DecodeMetadata builds the rich annotation value of a method, or nil when
// the method carries no @TestCaseInfo. Array fields are never nil.
func DecodeMetadata(annotations []schema.Annotation, signature string) *schema.TestMethodAnnotation {
	for _, a := range annotations {
		if a.Name != RichAnnotation {
			continue
		}
		status := scalar(a, "status")
		if status == "" {
			status = schema.DefaultAnnotationStatus
		}
		return &schema.TestMethodAnnotation{
			Title:               scalar(a, "title"),
			Author:              scalar(a, "author"),
			Status:              status,
			TargetClass:         scalar(a, "targetClass"),
			TargetMethod:        scalar(a, "targetMethod"),
			Description:         scalar(a, "description"),
			Tags:                schema.CleanTokens(a.Values("tags")),
			TestPoints:          schema.CleanTokens(a.Values("testPoints")),
			RelatedRequirements: schema.CleanTokens(a.Values("relatedRequirements")),
			RelatedDefects:      schema.CleanTokens(a.Values("relatedDefects")),
			RelatedTestcases:    schema.CleanTokens(a.Values("relatedTestcases")),
			TestCaseIDs:         schema.CleanTokens(a.Values("testCaseIds")),
			LastUpdateTime:      scalar(a, "lastUpdateTime"),
			LastUpdateAuthor:    scalar(a, "lastUpdateAuthor"),
			MethodSignature:     signature,
		}
	}
	return nil
}

// scalar joins a possibly multi-valued attribute into one trimmed string.
func scalar(a schema.Annotation, key string) string {
	return strings.TrimSpace(strings.Join(a.Values(key), " "))
}
