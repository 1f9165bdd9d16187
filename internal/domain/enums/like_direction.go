package enums

type LikeDirection int

const (
	// LikeDirectionLikers resolves users who liked the subject.
	LikeDirectionLikers LikeDirection = iota
	// LikeDirectionLikees resolves users the subject liked.
	LikeDirectionLikees
)
