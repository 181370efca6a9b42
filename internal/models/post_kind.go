package models

import "strings"

// PostKind is the tagged variant Original | Reply{target} | Quote{target} |
// Repost{target}. The zero value is Original.
type PostKind struct {
	typ    PostType
	target uint
}

func Original() PostKind            { return PostKind{typ: PostOriginal} }
func ReplyTo(target uint) PostKind  { return PostKind{typ: PostReply, target: target} }
func QuoteOf(target uint) PostKind  { return PostKind{typ: PostQuote, target: target} }
func RepostOf(target uint) PostKind { return PostKind{typ: PostRepost, target: target} }

func (k PostKind) Type() PostType {
	if k.typ == "" {
		return PostOriginal
	}
	return k.typ
}

// Target returns the referenced post for every variant except Original.
func (k PostKind) Target() (uint, bool) {
	if k.Type() == PostOriginal {
		return 0, false
	}
	return k.target, true
}

// ParsePostKind builds the variant from a requested post_type and the
// parent id fields of a create request. An empty postType is inferred from
// whichever parent is present.
func ParsePostKind(postType string, replyTo, quoteOf, repostOf *uint) (PostKind, error) {
	type ref struct {
		typ   PostType
		field string
		id    *uint
	}
	refs := []ref{
		{PostReply, "in_reply_to_post_id", replyTo},
		{PostQuote, "quote_of_post_id", quoteOf},
		{PostRepost, "repost_of_post_id", repostOf},
	}

	var present *ref
	for i := range refs {
		if refs[i].id == nil {
			continue
		}
		if *refs[i].id == 0 {
			return PostKind{}, NewValidationError(refs[i].field + " must be a positive id")
		}
		if present != nil {
			return PostKind{}, NewValidationError("only one of in_reply_to_post_id, quote_of_post_id or repost_of_post_id may be set")
		}
		present = &refs[i]
	}

	typ := PostType(strings.ToLower(strings.TrimSpace(postType)))
	switch typ {
	case "":
		if present == nil {
			return Original(), nil
		}
		typ = present.typ
	case PostOriginal:
		if present != nil {
			return PostKind{}, NewValidationError("original posts cannot reference another post")
		}
		return Original(), nil
	case PostReply, PostQuote, PostRepost:
	default:
		return PostKind{}, NewValidationError("post_type must be one of original, reply, quote or repost")
	}

	for _, r := range refs {
		if r.typ != typ {
			continue
		}
		if present == nil || present.typ != typ {
			return PostKind{}, NewValidationError(string(typ) + " posts require " + r.field)
		}
	}
	return PostKind{typ: typ, target: *present.id}, nil
}
