// Package jarpatch patches a single class inside a jar without its source.
//
// [PatchArchive] extracts a jar into a private working directory, resolves
// the target class (given explicitly or read from the manifest Main-Class
// attribute), and edits it:
//
//   - if the class declares no main method, a public static
//     main(String[]) printing "Main method added" is added;
//   - a println is inserted at the start of init, or of main when the class
//     declares no init.
//
// All other entries are written to the output jar byte-for-byte, in their
// original order.
//
//	report, err := jarpatch.PatchArchive(ctx, "app.jar", "app-patched.jar", "",
//	    jarpatch.WithLogger(logger),
//	)
//
// [ListClasses] prints every class in a jar with its declared methods.
//
// The class edit itself is expressed against the [ClassPool] and [Class]
// interfaces; [FilePool] implements them over the classfile package.
package jarpatch
