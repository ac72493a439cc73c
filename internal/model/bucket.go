package model

// Bucket is one of the link categories discovery sorts anchors into.
type Bucket string

const (
	BucketDocument     Bucket = "document"
	BucketInstructions Bucket = "instructions"
	BucketRegistration Bucket = "registration"
	BucketFairPlay     Bucket = "fairPlay"
	BucketPlatform     Bucket = "platform"
)

// AllBuckets lists buckets in a stable order.
var AllBuckets = []Bucket{
	BucketDocument,
	BucketInstructions,
	BucketRegistration,
	BucketFairPlay,
	BucketPlatform,
}

// Buckets maps each bucket to the links classified into it, in page order.
type Buckets map[Bucket][]string

// Add appends link to bucket b unless it is already there.
func (b Buckets) Add(bucket Bucket, link string) {
	for _, existing := range b[bucket] {
		if existing == link {
			return
		}
	}
	b[bucket] = append(b[bucket], link)
}

// First returns the first link in bucket b, or "".
func (b Buckets) First(bucket Bucket) string {
	if links := b[bucket]; len(links) > 0 {
		return links[0]
	}
	return ""
}

// Empty reports whether no bucket holds a link.
func (b Buckets) Empty() bool {
	for _, links := range b {
		if len(links) > 0 {
			return false
		}
	}
	return true
}
