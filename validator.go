package lroi

import (
	"fmt"

	"github.com/beevik/etree"
)

// ValidationIssue describes one structural problem found in an output
// document.
type ValidationIssue struct {
	// Questionnaire is the 1-based index of the offending record, 0 for
	// document-level issues
	Questionnaire int
	// Message describes the problem
	Message string
}

// String renders the issue for display.
func (i ValidationIssue) String() string {
	if i.Questionnaire == 0 {
		return i.Message
	}
	return fmt.Sprintf("questionaire %d: %s", i.Questionnaire, i.Message)
}

// ValidateDocument checks a serialized output document against the
// built-in schema structure: root and collection tags, per-record element
// names and their schema order, and the always-present GENDER element.
//
// This is a structural pre-flight for the registry's own XSD validation,
// not a business-rule check; it operates on engine output only.
func ValidateDocument(xml []byte) ([]ValidationIssue, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(xml); err != nil {
		return nil, fmt.Errorf("lroi: parse document: %w", err)
	}

	var issues []ValidationIssue

	root := doc.Root()
	if root == nil || root.Tag != rootTag {
		issues = append(issues, ValidationIssue{Message: "root element is not " + rootTag})
		return issues, nil
	}

	collection := root.SelectElement(collectionTag)
	if collection == nil {
		issues = append(issues, ValidationIssue{Message: "missing " + collectionTag + " element"})
		return issues, nil
	}

	for i, q := range collection.SelectElements(questionnaireTag) {
		issues = append(issues, validateQuestionnaire(q, i+1)...)
	}
	return issues, nil
}

// validateQuestionnaire checks one record: its elements must all belong to
// a single PROM type's schema order, appear in that order, and include the
// mandatory GENDER, HOSPITAL, UPNNUM, and DATUMINVUL elements.
func validateQuestionnaire(q *etree.Element, index int) []ValidationIssue {
	var tags []string
	for _, child := range q.ChildElements() {
		tags = append(tags, child.Tag)
	}

	var issues []ValidationIssue

	promKey, ok := matchSchemaOrder(tags)
	if !ok {
		issues = append(issues, ValidationIssue{
			Questionnaire: index,
			Message:       fmt.Sprintf("elements %v do not fit any PROM schema order", tags),
		})
		return issues
	}

	for _, mandatory := range []string{elementEntryDate, elementHospital, elementUPN, elementGender} {
		if q.SelectElement(mandatory) == nil {
			issues = append(issues, ValidationIssue{
				Questionnaire: index,
				Message:       fmt.Sprintf("missing mandatory element %s (PROM type %s)", mandatory, promKey),
			})
		}
	}
	return issues
}

// matchSchemaOrder finds a PROM type whose schema order contains every tag
// in sequence. Iteration over candidates is deterministic so that
// ambiguous short records resolve stably.
func matchSchemaOrder(tags []string) (string, bool) {
	for _, promKey := range []string{"OKS", "OHS", "KOOS", "HOOS"} {
		if isSubsequence(tags, schemaElementOrder[promKey]) {
			return promKey, true
		}
	}
	return "", false
}

// isSubsequence reports whether tags appear within order, in order.
func isSubsequence(tags, order []string) bool {
	pos := 0
	for _, tag := range tags {
		found := false
		for pos < len(order) {
			if order[pos] == tag {
				found = true
				pos++
				break
			}
			pos++
		}
		if !found {
			return false
		}
	}
	return true
}
