package frameio

// Project is a review-service project. RootAssetID is the folder every
// other asset in the project hangs off.
type Project struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Type        string `json:"_type"`
	RootAssetID string `json:"root_asset_id"`
}

// Asset types as reported by the service.
const (
	TypeFile         = "file"
	TypeFolder       = "folder"
	TypeVersionStack = "version_stack"
)

// AssetRef is a lightweight handle to a remote asset, as returned by search
// and create calls. It lives only for the duration of one operation.
type AssetRef struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Type     string `json:"type"`
	ParentID string `json:"parent_id"`
	Label    string `json:"label"`
}

// assetDetail carries the extra fields needed to walk from a versioned
// child asset up to its stack root.
type assetDetail struct {
	AssetRef
	IsVersioned  bool `json:"is_versioned"`
	VersionStack *struct {
		ID string `json:"id"`
	} `json:"version_stack"`
	OriginalAssetID string `json:"original_asset_id"`
}

// uploadTarget is the create-asset response for files: the new asset plus
// the presigned URLs its content must be PUT to, in order.
type uploadTarget struct {
	AssetRef
	UploadURLs []string `json:"upload_urls"`
}

// Commenter identifies who left a comment. Reviewers who are not signed in
// still have a display name.
type Commenter struct {
	Name string `json:"name"`
}

// Comment is a review comment anchored to a frame of an asset. Duration is
// in seconds and zero for single-frame comments. Replies are present when
// requested.
type Comment struct {
	ID       string    `json:"id"`
	Text     string    `json:"text"`
	Frame    float64   `json:"frame"`
	Duration float64   `json:"duration"`
	Owner    Commenter `json:"owner"`
	Replies  []Comment `json:"replies"`
}

// SearchQuery narrows an asset search. Type may be empty to match any
// asset type.
type SearchQuery struct {
	ProjectID string
	Text      string
	Type      string
}
