// Package vecspace embeds the vecspace collection layer in-process: a SQLite
// catalog plus a shared vector engine (in-memory, chromem-go or Valkey),
// without running the HTTP service.
//
//	client, _ := vecspace.New(ctx,
//	    vecspace.WithCatalogPath("data/vecspace.db"),
//	    vecspace.WithChromem("data/vectors", true),
//	)
//	defer client.Close()
//
//	client.Collections().Ensure(ctx, "docs-2024", 384, vecspace.WithTags("prod"))
//	client.Vectors("docs-2024").Insert(ctx, "vec_1", embedding, nil)
//
//	res, _ := client.Search(ctx, vecspace.SearchRequest{
//	    Embedding:   query,
//	    K:           10,
//	    Collections: []string{"docs-2024", "archive-2024"},
//	})
//
//	task, _ := client.Migrations().Start(ctx, "docs-2024", "archive-2024")
//	task, _ = client.Migrations().Wait(ctx, task.ID, 100*time.Millisecond)
package vecspace
