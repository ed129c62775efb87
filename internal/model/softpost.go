package model

// SoftPost is an off-chain annotation attached to a specific
// (author, permlink) pair. SafeUser is an alias identifier under which the
// same post can be resolved when the literal author differs. This subsystem
// only reads soft posts; the write path lives elsewhere.
type SoftPost struct {
	ID       string `db:"id" json:"id"`
	Author   string `db:"author" json:"author"`
	Permlink string `db:"permlink" json:"permlink"`
	Type     string `db:"type" json:"type"`
	Metadata string `db:"metadata" json:"metadata,omitempty"`
	UserID   UserID `db:"user_id" json:"-"`
	SafeUser string `db:"safe_user" json:"-"`
}

// SoftPostView is the cross-user read shape: the annotation plus the public
// profile of the user who created it.
type SoftPostView struct {
	Author   string       `json:"author"`
	Permlink string       `json:"permlink"`
	Type     string       `json:"type"`
	Metadata string       `json:"metadata,omitempty"`
	User     SoftPostUser `json:"user"`
}

type SoftPostUser struct {
	ID          UserID `json:"id"`
	DisplayName string `json:"display_name"`
	Handle      string `json:"handle"`
	AvatarURL   string `json:"avatar_url"`
}
