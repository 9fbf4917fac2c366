/*
Package host declares the contracts of the pipeline runtime this engine
attaches to. The runtime itself is an external collaborator; only its
shapes live here.

Three contracts matter to the attribution engine:

  - The artifact-save entry point (SaveFunc / Saver), whose result shape
    is preserved verbatim by the interceptor.
  - The hidden inputs the runtime injects into node callbacks: the unique
    execution id, the full prompt graph and per-node extra metadata.
  - Output directory resolution (DirResolver).
*/
package host
