package social

import "time"

// tweet is the subset of a post document the loops use
type tweet struct {
	ID            string    `json:"id"`
	Text          string    `json:"text"`
	AuthorID      string    `json:"author_id"`
	CreatedAt     time.Time `json:"created_at"`
	PublicMetrics struct {
		Likes    int64 `json:"like_count"`
		Retweets int64 `json:"retweet_count"`
		Replies  int64 `json:"reply_count"`
	} `json:"public_metrics"`
}

type user struct {
	ID            string `json:"id"`
	Username      string `json:"username"`
	PublicMetrics struct {
		Followers int64 `json:"followers_count"`
	} `json:"public_metrics"`
}

type timeline struct {
	Data     []tweet `json:"data"`
	Includes struct {
		Users []user `json:"users"`
	} `json:"includes"`
	Meta struct {
		NewestID    string `json:"newest_id"`
		NextToken   string `json:"next_token"`
		ResultCount int    `json:"result_count"`
	} `json:"meta"`
}

type createRequest struct {
	Text  string       `json:"text"`
	Reply *replyTarget `json:"reply,omitempty"`
	Media *mediaRef    `json:"media,omitempty"`
}

type replyTarget struct {
	InReplyTo string `json:"in_reply_to_tweet_id"`
}

type mediaRef struct {
	IDs []string `json:"media_ids"`
}

type createResponse struct {
	Data struct {
		ID string `json:"id"`
	} `json:"data"`
}
