// Package locadex embeds the locadex search and duplicate-detection engines
// in a Go program, without the HTTP server.
//
// Listings live in SQLite, vectors in Redis (or Qdrant), and embeddings come
// from an OpenAI-compatible API or a custom Embedder.
//
//	client, err := locadex.New(ctx,
//	    locadex.WithRedis("localhost:6379", ""),
//	    locadex.WithListingsDB("listings.db"),
//	    locadex.WithOpenAI(os.Getenv("OPENAI_API_KEY"), "", "text-embedding-3-small"),
//	)
//	defer client.Close()
//
//	_, _ = client.PutListing(ctx, &listing)
//	res, _ := client.HybridSearch(ctx, locadex.QueryParams{Text: "organic honey", City: "Lyon"})
//
//	matches, _ := client.CheckForDuplicates(ctx, &candidate, "user-42")
//	if locadex.Blocking(matches) {
//	    // refuse the listing
//	}
package locadex
