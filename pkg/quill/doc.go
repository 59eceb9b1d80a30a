// Package quill corrects English sentences and labels the kind of change
// that was made.
//
// Quick start:
//
//	q, err := quill.New(quill.WithModelDir("models/"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer q.Close()
//
//	res, _ := q.Correct(ctx, "hello world")
//	fmt.Println(res.Corrected, res.ErrorType) // Hello world Capitalization
//
// Labels come from a fixed vocabulary: "No Error", "Punctuation",
// "Capitalization" and "Grammar/Syntax". The first matching rule wins.
//
// A Quill instance is safe for concurrent use. By default the model runs one
// correction at a time; see WithSerializedAccess.
package quill
