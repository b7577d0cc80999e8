// Package schemefinder embeds the scheme discovery engine in a Go program
// without running the HTTP API. It talks to Redis directly and uses the
// caller's embedding provider.
//
//	client, _ := schemefinder.New(ctx,
//	    schemefinder.WithRedis("localhost:6379", ""),
//	    schemefinder.WithEmbedder(myEmbedder),
//	    schemefinder.WithVectorDimensions(1024),
//	)
//	defer client.Close()
//
//	_ = client.EnsureIndex(ctx)
//	_, _ = client.Ingest(ctx, []schemefinder.Scheme{{ID: "snap", Name: "SNAP", Tags: []string{"food"}}})
//
//	page, _ := client.Search(ctx, schemefinder.SearchQuery{Query: "I need food and rent help", TopK: 10})
//	for _, h := range page.Hits {
//	    fmt.Println(h.SchemeID, h.Score, h.Band)
//	}
//	next, _ := client.Search(ctx, schemefinder.SearchQuery{
//	    Query: "I need food and rent help", TopK: 10,
//	    Cursor: page.NextCursor, SessionID: page.SessionID,
//	})
package schemefinder
