package models

import "strconv"

// Bucket is a display grouping of a solved problem's difficulty or rating.
// Buckets are computed purely from the rating string stored on the dedup row;
// nothing is ever re-fetched from a platform to bucket it.
type Bucket string

const (
	BucketEasy   Bucket = "Easy"
	BucketMedium Bucket = "Medium"
	BucketHard   Bucket = "Hard"

	BucketCF800to1000  Bucket = "800-1000"
	BucketCF1100to1300 Bucket = "1100-1300"
	BucketCF1400to1600 Bucket = "1400-1600"
	BucketCF1700plus   Bucket = "1700+"

	// BucketOther absorbs missing, unrecognized and out-of-band ratings.
	BucketOther Bucket = "Other"
)

// PlatformBuckets returns the full, ordered bucket list for a platform. Every
// report enumerates exactly these, in this order, including zero counts.
func PlatformBuckets(p Platform) []Bucket {
	switch p {
	case PlatformCodeforces:
		return []Bucket{BucketCF800to1000, BucketCF1100to1300, BucketCF1400to1600, BucketCF1700plus, BucketOther}
	case PlatformLeetCode:
		return []Bucket{BucketEasy, BucketMedium, BucketHard, BucketOther}
	default:
		return nil
	}
}

// BucketFor maps one stored rating string into its platform's bucket.
func BucketFor(p Platform, rating string) Bucket {
	switch p {
	case PlatformLeetCode:
		switch rating {
		case "Easy":
			return BucketEasy
		case "Medium":
			return BucketMedium
		case "Hard":
			return BucketHard
		}
		return BucketOther
	case PlatformCodeforces:
		value, err := strconv.Atoi(rating)
		if err != nil {
			return BucketOther
		}
		switch {
		case value >= 800 && value <= 1000:
			return BucketCF800to1000
		case value >= 1100 && value <= 1300:
			return BucketCF1100to1300
		case value >= 1400 && value <= 1600:
			return BucketCF1400to1600
		case value >= 1700:
			return BucketCF1700plus
		}
		return BucketOther
	default:
		return BucketOther
	}
}
