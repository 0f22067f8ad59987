package notifications

import (
	"fmt"

	"github.com/dmitrymomot/forumnotify/pkg/sanitizer"
)

// PreviewLength is the maximum length of a content preview in characters.
const PreviewLength = 100

// Related entity types used for deep links.
const (
	RelatedPost = "post"
	RelatedUser = "user"
)

// ThreadReply notifies a thread author about a new reply in their thread.
func ThreadReply(threadAuthorID, actorID int64, actorName, threadTitle string, postID int64, body string) Candidate {
	return Candidate{
		RecipientID: threadAuthorID,
		ActorID:     &actorID,
		Kind:        KindThreadReply,
		Title:       title(fmt.Sprintf("%s replied to your thread %q", actorName, threadTitle)),
		Content:     Preview(body),
		RelatedType: RelatedPost,
		RelatedID:   &postID,
	}
}

// PostReply notifies a post author that someone quoted or answered their post.
func PostReply(postAuthorID, actorID int64, actorName string, replyPostID int64, body string) Candidate {
	return Candidate{
		RecipientID: postAuthorID,
		ActorID:     &actorID,
		Kind:        KindPostReply,
		Title:       title(actorName + " replied to your post"),
		Content:     Preview(body),
		RelatedType: RelatedPost,
		RelatedID:   &replyPostID,
	}
}

// Mention notifies a user mentioned with @username in a post.
func Mention(mentionedID, actorID int64, actorName string, postID int64, body string) Candidate {
	return Candidate{
		RecipientID: mentionedID,
		ActorID:     &actorID,
		Kind:        KindMention,
		Title:       title(actorName + " mentioned you"),
		Content:     Preview(body),
		RelatedType: RelatedPost,
		RelatedID:   &postID,
	}
}

// PostLiked notifies a post author about a like.
func PostLiked(postAuthorID, actorID int64, actorName string, postID int64, body string) Candidate {
	return Candidate{
		RecipientID: postAuthorID,
		ActorID:     &actorID,
		Kind:        KindPostLiked,
		Title:       title(actorName + " liked your post"),
		Content:     Preview(body),
		RelatedType: RelatedPost,
		RelatedID:   &postID,
	}
}

// Follow notifies a user about a new follower. The deep link points to the follower.
func Follow(followedID, actorID int64, actorName string) Candidate {
	return Candidate{
		RecipientID: followedID,
		ActorID:     &actorID,
		Kind:        KindFollow,
		Title:       title(actorName + " started following you"),
		RelatedType: RelatedUser,
		RelatedID:   &actorID,
	}
}

// System builds an administrator notification for one user.
func System(recipientID int64, subject, body string) SystemNotification {
	return SystemNotification{
		RecipientID: recipientID,
		Title:       title(subject),
		Content:     body,
	}
}

var (
	preview = sanitizer.Compose(
		sanitizer.StripHTML,
		sanitizer.RemoveControlChars,
		sanitizer.SingleLine,
		sanitizer.TruncateFunc(PreviewLength),
	)
	title = sanitizer.Compose(
		sanitizer.RemoveControlChars,
		sanitizer.SingleLine,
		sanitizer.TruncateFunc(MaxTitleLength),
	)
)

// Preview renders a post body as plain single-line text of at most
// PreviewLength characters, ending in an ellipsis when something was cut.
func Preview(s string) string {
	return preview(s)
}
