package importers

// Column aliases, tried in order. Exports from the back office use French
// headers, so both spellings and their unaccented forms are listed.
var (
	nameAliases           = []string{"name", "nom", "product_name", "produit"}
	descriptionAliases    = []string{"description", "desc", "description_produit"}
	priceAliases          = []string{"price", "prix", "unit_price", "prix_unitaire"}
	purchasePriceAliases  = []string{"purchase_price", "prix_achat", "cost", "cout"}
	quantityAliases       = []string{"quantity", "quantite", "quantité", "stock", "qty"}
	categoryAliases       = []string{"category", "categorie", "catégorie", "cat"}
	brandAliases          = []string{"brand", "marque", "fabricant"}
	modelAliases          = []string{"model", "modele", "modèle", "reference"}
	barcodeAliases        = []string{"barcode", "code_barre", "code-barres", "ean", "sku"}
	conditionAliases      = []string{"condition", "etat", "state"}
	notesAliases          = []string{"notes", "commentaires", "remarques"}
	imeiAliases           = []string{"imei", "serial", "imei_serial", "numéro_série", "numero_serie"}
	variantBarcodeAliases = []string{"variant_barcode", "code_barre_variante", "barcode_variant"}
	variantCondAliases    = []string{"variant_condition", "condition_variante", "etat_variante"}

	partyNameAliases = []string{"name", "nom", "raison_sociale", "company", "societe"}
	emailAliases     = []string{"email", "e-mail", "mail", "courriel"}
	phoneAliases     = []string{"phone", "telephone", "téléphone", "tel", "mobile"}
	addressAliases   = []string{"address", "adresse"}
)
