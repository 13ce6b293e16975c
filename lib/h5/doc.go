/*
Package h5 is the uniform tree model on top of the storage backends.

A Storage is created for one backend out of the probed capabilities and opens
one container file at a time:

	caps := backend.Probe(tables.NewDriver(), kvtree.NewDriver())
	st, err := h5.New(caps, backend.IDH5py)
	if err != nil {
		return err
	}
	if err := st.OpenFile("scan.h5", backend.ModeWrite, "my scan"); err != nil {
		return err
	}
	defer st.CloseFile()

	scan, _ := st.AddGroup("scan1", "scan", h5.Path("/"), "", nil)
	data, _ := st.CreateEArray(scan, "data", "float64", []int{10}, "")
	_ = data.Append(row)

Nodes are built on every access from the CLASS attribute of the stored node
(GROUP, CARRAY, EARRAY or VLARRAY) and hold no references to their parents;
GetParentNode looks the parent up by path. Every attribute goes through the
attribute codec, so values written through one backend read back identically
through another.

A Storage does no locking. Writes are durable after Flush or CloseFile.
*/
package h5
