// Package domain models news articles about immigration enforcement and the
// locations inferred for them.
//
// # Data Source
//
// Articles arrive as [RawArticle] records from the configured sources (the
// NewsAPI "everything" endpoint and RSS feeds). A record must carry a title, a
// URL and a publication timestamp; anything else is optional. URLs are the
// identity of an article: two records with the same URL are the same article
// and only the first one seen is kept.
//
// Timestamp formats accepted by [ParseArticle]:
//
//	RFC 3339          2025-03-14T09:30:00Z  (NewsAPI)
//	RFC 1123 (zone)   Fri, 14 Mar 2025 09:30:00 +0000  (RSS)
//	Date prefix       2025-03-14  (anything after the first ten bytes is ignored)
//
// # Resolution
//
// Each accepted [Article] is turned into a [ResolvedArticle]: a location alias
// chosen by the matcher, the coordinate the geocoder resolved for it, and a
// display ID of the form "marker_<n>" where n is the article's position in the
// run. Coordinates inside one run are pairwise distinct; duplicates are nudged
// apart by the de-overlap step and [ResolvedArticle.OffsetKm] records how far.
//
// Geocoding outcomes are explicit ([GeocodeStatus]) so a fallback coordinate
// produced because the provider was down can be told apart from one produced
// because the provider had never heard of the place.
//
// # Timeline
//
// [GroupByDate] buckets resolved articles by UTC calendar date (YYYY-MM-DD),
// oldest day first, keeping arrival order inside a day.
package domain
