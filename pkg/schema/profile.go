package schema

// Profile is a confidence-scored classification of a text blob's
// shape. Profiles are immutable once produced: the pipeline never
// adjusts confidence mid-request, and learning adjustments are emitted
// as sink events rather than applied in place.
type Profile struct {
	Kind       ProfileKind    `json:"kind"`
	Confidence float64        `json:"confidence"`
	Features   map[string]any `json:"features,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// ProfileKind tags a classification branch. Each kind carries a fixed
// heuristic confidence chosen by the branch that produced it.
type ProfileKind string

// Input profile kinds.
const (
	KindJSONInput     ProfileKind = "json_input"
	KindJSONLikeInput ProfileKind = "json_like_text_input"
	KindCSVInput      ProfileKind = "csv_input"
	KindFormInput     ProfileKind = "form_urlencoded_input"
	KindXMLInput      ProfileKind = "xml_input"
	KindTabularText   ProfileKind = "potentially_tabular_text_input"
	KindListText      ProfileKind = "potentially_list_text_input"
	KindCodeLikeText  ProfileKind = "code_like_text_input"
	KindUnstructured  ProfileKind = "unstructured_text_input"
	KindOtherInput    ProfileKind = "other_input_type"
)

// Output profile kinds.
const (
	KindValidJSONOutput     ProfileKind = "valid_json_output"
	KindJSONLikeOutput      ProfileKind = "json_like_output"
	KindInvalidJSONOutput   ProfileKind = "invalid_json_output"
	KindHTMLTableOutput     ProfileKind = "html_table_output"
	KindHTMLListOutput      ProfileKind = "html_list_output"
	KindHTMLParagraphOutput ProfileKind = "html_paragraph_output"
	KindGenericHTMLOutput   ProfileKind = "generic_html_output"
	KindHTMLParseFailed     ProfileKind = "html_parsing_failed_output"
	KindHTMLLikeOutput      ProfileKind = "html_like_output"
	KindCodeOutput          ProfileKind = "code_output"
	KindNoCodeOutput        ProfileKind = "no_code_output"
	KindCodeLikeOutput      ProfileKind = "code_like_output"
	KindTextListOutput      ProfileKind = "plaintext_list_output"
	KindTextTableOutput     ProfileKind = "plaintext_table_like_output"
	KindTextParagraph       ProfileKind = "plaintext_paragraph_output"
)

// KindUnknown is shared by input and output classification.
const KindUnknown ProfileKind = "unknown"

// NewProfile builds a profile with empty feature and metadata maps.
func NewProfile(kind ProfileKind, confidence float64) Profile {
	return Profile{
		Kind:       kind,
		Confidence: confidence,
		Features:   make(map[string]any),
		Metadata:   make(map[string]any),
	}
}
