package enum

type WarmupStatus string

const (
	WarmupStatusInactive  WarmupStatus = "inactive"
	WarmupStatusActive    WarmupStatus = "active"
	WarmupStatusCompleted WarmupStatus = "completed"
)

func (t WarmupStatus) String() string {
	return string(t)
}

type InteractionType string

const (
	InteractionDelivery   InteractionType = "delivery"
	InteractionOpen       InteractionType = "open"
	InteractionReply      InteractionType = "reply"
	InteractionBounce     InteractionType = "bounce"
	InteractionSpamRescue InteractionType = "spam_rescue"
)

func (t InteractionType) String() string {
	return string(t)
}

type InteractionStatus string

const (
	InteractionSuccess InteractionStatus = "success"
	InteractionFailure InteractionStatus = "failure"
)

func (t InteractionStatus) String() string {
	return string(t)
}

type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNeutral  Sentiment = "neutral"
	SentimentNegative Sentiment = "negative"
)

func (t Sentiment) String() string {
	return string(t)
}

type BulkAction string

const (
	BulkActionWarmup   BulkAction = "warmup"
	BulkActionTracking BulkAction = "tracking"
	BulkActionDelete   BulkAction = "delete"
)

func (t BulkAction) String() string {
	return string(t)
}
