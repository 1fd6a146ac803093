package observer

import "go.opentelemetry.io/otel/attribute"

// Attribute keys for pipeline spans and metrics.
var (
	AttrDocID    = attribute.Key("doc.id")
	AttrDocTitle = attribute.Key("doc.title")
	AttrFormat   = attribute.Key("doc.format")
	AttrStrategy = attribute.Key("ingest.strategy")

	AttrChunkCount  = attribute.Key("ingest.chunk_count")
	AttrParentCount = attribute.Key("ingest.parent_count")

	AttrEmbedModel      = attribute.Key("embed.model")
	AttrEmbedTextCount  = attribute.Key("embed.text_count")
	AttrEmbedDimensions = attribute.Key("embed.dimensions")

	AttrQueryTopK         = attribute.Key("query.top_k")
	AttrQueryExpandParent = attribute.Key("query.expand_parent")
	AttrQueryResultCount  = attribute.Key("query.result_count")

	AttrOCRPage = attribute.Key("ocr.page")
)
