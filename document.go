package lroi

import (
	"strconv"
	"strings"

	"github.com/beevik/etree"
)

// Element names with special assembly rules
const (
	// elementHospital is injected unconditionally from the run-level constant
	elementHospital = "HOSPITAL"
	// elementGender must always be present, even empty, for the registry schema
	elementGender = "GENDER"
	// elementUPN is the person identifier, mandatory post-extraction
	elementUPN = "UPNNUM"
	// elementEntryDate is the questionnaire entry date, mandatory post-extraction
	elementEntryDate = "DATUMINVUL"
)

// Output document tag names; part of the compatibility contract with the
// registry's schema validator. The questionaire spelling is the schema's.
const (
	rootTag          = "LROIPROM"
	collectionTag    = "questionaires"
	questionnaireTag = "questionaire"
)

// schemaElementOrder fixes the per-PROM-type element sequence mandated by
// the registry XSD. Output elements always follow this order, regardless
// of the order mappings were declared in configuration.
var schemaElementOrder = map[string][]string{
	"OKS": {
		"DATUMINVUL", "HOSPITAL", "UPNNUM", "GENDER", "DATBIRTH",
		"FUPK", "SIDEPK",
		"OKS1PK", "OKS2PK", "OKS3PK", "OKS4PK", "OKS5PK", "OKS6PK",
		"OKS7PK", "OKS8PK", "OKS9PK", "OKS10PK", "OKS11PK", "OKS12PK",
		"ANKERPK",
	},
	"OHS": {
		"DATUMINVUL", "HOSPITAL", "UPNNUM", "GENDER", "DATBIRTH",
		"FUPH", "SIDEP",
		"OHS1P", "OHS2P", "OHS3P", "OHS4P", "OHS5P", "OHS6P",
		"OHS7P", "OHS8P", "OHS9P", "OHS10P", "OHS11P", "OHS12P",
		"OHS1PN", "OHS2PN", "OHS3PN", "OHS4PN", "OHS5PN", "OHS6PN",
		"OHS7PN", "OHS8PN", "OHS9PN", "OHS10PN", "OHS11PN", "OHS12PN",
		"ANKERP",
	},
	"KOOS": {
		"DATUMINVUL", "HOSPITAL", "UPNNUM", "GENDER", "DATBIRTH",
		"FUPK", "SIDEPK",
		"KOOS26P", "KOOS25P", "KOOS19P", "KOOS21P", "KOOS09P",
		"KOOS38P", "KOOS34P",
	},
	"HOOS": {
		"DATUMINVUL", "HOSPITAL", "UPNNUM", "GENDER", "DATBIRTH",
		"FUPH", "SIDEP",
		"HOOS16P", "HOOS28P", "HOOS29P", "HOOS34P", "HOOS35P",
	},
}

// newDocument creates the empty output document and returns it together
// with the collection element questionnaires are appended to.
func newDocument() (*etree.Document, *etree.Element) {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="utf-8"`)
	root := doc.CreateElement(rootTag)
	collection := root.CreateElement(collectionTag)
	return doc, collection
}

// buildQuestionnaire assembles one <questionaire> element from extracted
// values, laid out in the PROM type's fixed schema order.
//
// Only non-empty values are emitted, with two exceptions: HOSPITAL is
// injected unconditionally from the run-level hospital number, overriding
// any extracted value, and GENDER is always emitted, empty when absent or
// when the extracted value is a literal none/null.
func buildQuestionnaire(elements map[string]string, promKey string, hospital int) *etree.Element {
	q := etree.NewElement(questionnaireTag)

	for _, tag := range schemaElementOrder[promKey] {
		value := elements[tag]
		switch {
		case tag == elementHospital:
			q.CreateElement(tag).SetText(strconv.Itoa(hospital))
		case tag == elementGender:
			gender := q.CreateElement(tag)
			if lower := strings.ToLower(value); lower != "none" && lower != "null" {
				gender.SetText(value)
			}
		case value != "":
			q.CreateElement(tag).SetText(value)
		}
	}
	return q
}

// serializeDocument renders the document with two-space indentation.
func serializeDocument(doc *etree.Document) (string, error) {
	doc.Indent(2)
	return doc.WriteToString()
}
