package models

// FieldType enumerates the kinds of values a form field can carry.
type FieldType string

const (
	FieldString         FieldType = "string"
	FieldOptionalRef    FieldType = "optional_reference"
	FieldTimestamp      FieldType = "timestamp"
	FieldBinaryAssetRef FieldType = "binary_asset_reference"
)

// FormField describes one editable field of an entity form.
type FormField struct {
	Name     string    `json:"name"`
	Type     FieldType `json:"type"`
	Required bool      `json:"required"`
}

// PostFormFields is the static schema of the post create/edit form.
// pub_date is server-assigned and therefore not part of the form.
var PostFormFields = []FormField{
	{Name: "text", Type: FieldString, Required: true},
	{Name: "group", Type: FieldOptionalRef, Required: false},
	{Name: "image", Type: FieldBinaryAssetRef, Required: false},
}

// CommentFormFields is the static schema of the comment form.
var CommentFormFields = []FormField{
	{Name: "text", Type: FieldString, Required: true},
}

// LoginFormFields is the static schema of the login form served at the
// redirect-to-login target.
var LoginFormFields = []FormField{
	{Name: "username", Type: FieldString, Required: true},
	{Name: "password", Type: FieldString, Required: true},
}
