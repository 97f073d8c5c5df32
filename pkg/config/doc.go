/*
Package config loads capsend settings.

	+-----------+   +-----------+   +-----------+
	|   YAML    |   |   JSON    |   |    HCL    |
	+-----+-----+   +-----+-----+   +-----+-----+
	      |               |               |
	      +-------+-------+-------+-------+
	              |               |
	        CAPSEND_* env     Validate
	        overrides         (defaults)

🎯 Purpose:
- Picks a parser by file extension
- Lets CAPSEND_<SECTION>_<KEY> variables override any scalar, so
  credentials never need to live in the file
- Fills defaults and falls back to the built-in nightly sources

📦 Sections: commonapp, slate, webadmit, data, archive, ledger, sources.

🔍 Example:

	cfg, err := config.Load(ctx, "capsend.yaml")
	if err != nil {
		return err
	}
	url := cfg.GetOrElse("slate", "url", "")
	registry := cfg.FamilyRegistry()
*/
package config
