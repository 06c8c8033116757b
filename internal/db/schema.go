package db

// SchemaSQL contains the database schema initialization SQL.
// Record ids are application-assigned: materials use their UUID,
// embeddings and processed messages are keyed so uniqueness per
// material / per message falls out of the record id itself.
const SchemaSQL = `
    -- ==========================================================================
    -- MATERIAL TABLE
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS material SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS channel_id ON material TYPE string;
    DEFINE FIELD IF NOT EXISTS messages ON material TYPE array<object> FLEXIBLE;
    REMOVE FIELD IF EXISTS messages.* ON material;
    DEFINE FIELD messages.* ON material TYPE object FLEXIBLE;
    DEFINE FIELD IF NOT EXISTS links ON material TYPE array<string> DEFAULT [];
    DEFINE FIELD IF NOT EXISTS author ON material TYPE string DEFAULT '';
    DEFINE FIELD IF NOT EXISTS summary ON material TYPE string DEFAULT '';
    DEFINE FIELD IF NOT EXISTS description ON material TYPE string DEFAULT '';
    DEFINE FIELD IF NOT EXISTS keywords ON material TYPE array<string> DEFAULT [];
    DEFINE FIELD IF NOT EXISTS created ON material TYPE datetime DEFAULT time::now();

    DEFINE INDEX IF NOT EXISTS material_channel ON material FIELDS channel_id;

    -- ==========================================================================
    -- EMBEDDING TABLE (one record per material, keyed by material id)
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS embedding SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS material_id ON embedding TYPE string;
    DEFINE FIELD IF NOT EXISTS vector ON embedding TYPE array<float>;

    DEFINE INDEX IF NOT EXISTS embedding_material ON embedding FIELDS material_id UNIQUE;

    -- ==========================================================================
    -- PROCESSED-MESSAGE LEDGER (keyed by message id; grows monotonically)
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS processed_message SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS channel_id ON processed_message TYPE string;

    DEFINE INDEX IF NOT EXISTS processed_channel ON processed_message FIELDS channel_id;

    -- ==========================================================================
    -- CHANNEL CURSOR (keyed by channel id)
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS channel_cursor SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS channel_id ON channel_cursor TYPE string;
    DEFINE FIELD IF NOT EXISTS last_message_id ON channel_cursor TYPE string;

    -- ==========================================================================
    -- FEEDBACK TABLE
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS feedback SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS user_id ON feedback TYPE string;
    DEFINE FIELD IF NOT EXISTS query ON feedback TYPE string;
    DEFINE FIELD IF NOT EXISTS links ON feedback TYPE array<string> DEFAULT [];
    DEFINE FIELD IF NOT EXISTS timestamp ON feedback TYPE datetime DEFAULT time::now();
    DEFINE FIELD IF NOT EXISTS rating ON feedback TYPE string DEFAULT '';
    DEFINE FIELD IF NOT EXISTS detail ON feedback TYPE string DEFAULT '';

    DEFINE INDEX IF NOT EXISTS feedback_user ON feedback FIELDS user_id;
`
