package db

// SchemaSQL contains the database schema initialization SQL.
// Tables holding nested objects stay SCHEMALESS so reports and snapshots
// round-trip as written; only the fields queries filter or count on are typed.
const SchemaSQL = `
    -- ==========================================================================
    -- DOCUMENT TABLE
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS document SCHEMALESS;
    DEFINE FIELD IF NOT EXISTS title ON document TYPE string;
    DEFINE FIELD IF NOT EXISTS title_fingerprint ON document TYPE string;
    DEFINE FIELD IF NOT EXISTS status ON document TYPE string
        ASSERT $value IN ["draft", "pendingReview", "published"];
    DEFINE FIELD IF NOT EXISTS body ON document TYPE string;
    DEFINE FIELD IF NOT EXISTS word_count ON document TYPE int DEFAULT 0;
    DEFINE FIELD IF NOT EXISTS created_at ON document TYPE datetime DEFAULT time::now();
    DEFINE FIELD IF NOT EXISTS updated_at ON document TYPE datetime DEFAULT time::now();

    DEFINE INDEX IF NOT EXISTS document_fingerprint ON document FIELDS title_fingerprint UNIQUE;
    DEFINE INDEX IF NOT EXISTS document_status ON document FIELDS status;

    -- ==========================================================================
    -- TEMPLATE VARIABLES (record key is the variable key)
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS variable SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS key ON variable TYPE string;
    DEFINE FIELD IF NOT EXISTS value ON variable TYPE string;
    DEFINE FIELD IF NOT EXISTS updated_at ON variable TYPE datetime DEFAULT time::now();

    -- ==========================================================================
    -- CONTENT TEMPLATES
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS template SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS name ON template TYPE string;
    DEFINE FIELD IF NOT EXISTS keywords ON template TYPE array<string>;
    DEFINE FIELD IF NOT EXISTS instructions ON template TYPE string;
    DEFINE FIELD IF NOT EXISTS cta_block ON template TYPE string;
    DEFINE FIELD IF NOT EXISTS usage_count ON template TYPE int DEFAULT 0;

    -- ==========================================================================
    -- BULK UPDATE BATCHES
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS bulk_batch SCHEMALESS;
    DEFINE FIELD IF NOT EXISTS variable_key ON bulk_batch TYPE string;
    DEFINE FIELD IF NOT EXISTS status ON bulk_batch TYPE string
        ASSERT $value IN ["pending", "processing", "completed", "cancelled"];
    DEFINE FIELD IF NOT EXISTS affected_count ON bulk_batch TYPE int DEFAULT 0;
    DEFINE FIELD IF NOT EXISTS updated_count ON bulk_batch TYPE int DEFAULT 0
        ASSERT $value >= 0;
    DEFINE FIELD IF NOT EXISTS failed_count ON bulk_batch TYPE int DEFAULT 0
        ASSERT $value >= 0;
    DEFINE FIELD IF NOT EXISTS created_at ON bulk_batch TYPE datetime DEFAULT time::now();

    -- Record key is <batch_id>_<document_id>
    DEFINE TABLE IF NOT EXISTS batch_item SCHEMALESS;
    DEFINE FIELD IF NOT EXISTS batch_id ON batch_item TYPE string;
    DEFINE FIELD IF NOT EXISTS document_id ON batch_item TYPE string;
    DEFINE FIELD IF NOT EXISTS status ON batch_item TYPE string
        ASSERT $value IN ["pending", "success", "failed"];
    DEFINE FIELD IF NOT EXISTS attempts ON batch_item TYPE int DEFAULT 0;

    DEFINE INDEX IF NOT EXISTS batch_item_batch ON batch_item FIELDS batch_id, status;

    -- ==========================================================================
    -- TRANSLATIONS (record key is <document_id>_<language_code>)
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS translation SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS document_id ON translation TYPE string;
    DEFINE FIELD IF NOT EXISTS language_code ON translation TYPE string;
    DEFINE FIELD IF NOT EXISTS translated_title ON translation TYPE string;
    DEFINE FIELD IF NOT EXISTS translated_body ON translation TYPE string;
    DEFINE FIELD IF NOT EXISTS created_at ON translation TYPE datetime DEFAULT time::now();

    DEFINE INDEX IF NOT EXISTS translation_unique ON translation FIELDS document_id, language_code UNIQUE;
`
